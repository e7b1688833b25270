package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seller-rotation/internal/database"
	"github.com/iliyamo/seller-rotation/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Settings{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "rotation.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// inTx runs fn in a transaction and commits it.
func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestSellerRepoReplaceAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSellerRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, []string{"Charlie", "Alice", "Bob"}))
	})
	sellers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sellers, 3)
	assert.Equal(t, "Charlie", sellers[0].Name)
	assert.Equal(t, "Alice", sellers[1].Name)
	assert.Equal(t, "Bob", sellers[2].Name)
	assert.Less(t, sellers[0].Position, sellers[1].Position)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, []string{"Dana"}))
	})
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, nil))
	})
	sellers, err = repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sellers)
	assert.Empty(t, sellers)
}

func TestSellerRepoDuplicates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSellerRepo(db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = repo.ReplaceAllTx(ctx, tx, []string{"Alice", "Alice"})
	assert.ErrorIs(t, err, ErrDuplicateSeller)
	require.NoError(t, tx.Rollback())

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.InsertTx(ctx, tx, "Alice"))
		assert.ErrorIs(t, repo.InsertTx(ctx, tx, "Alice"), ErrDuplicateSeller)
	})
}

func TestSellerRepoCustomerCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSellerRepo(db)
	first := model.CustomerAssignment{ID: "client-1", StartDate: "14/03/2025", StartTime: "10:30:00"}
	second := model.CustomerAssignment{ID: "client-2", StartDate: "14/03/2025", StartTime: "10:31:00"}

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, []string{"Alice"}))

		ok, err := repo.AssignCustomerTx(ctx, tx, "Alice", first)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.AssignCustomerTx(ctx, tx, "Alice", second)
		require.NoError(t, err)
		assert.False(t, ok, "second assignment must not overwrite the first")

		ok, err = repo.AssignCustomerTx(ctx, tx, "Zed", second)
		require.NoError(t, err)
		assert.False(t, ok)

		s, err := repo.GetTx(ctx, tx, "Alice")
		require.NoError(t, err)
		require.NotNil(t, s.ActiveCustomer)
		assert.Equal(t, first, *s.ActiveCustomer)

		ok, err = repo.ReleaseCustomerTx(ctx, tx, "Alice", "client-2", true)
		require.NoError(t, err)
		assert.False(t, ok, "stale customer id must not match")

		ok, err = repo.ReleaseCustomerTx(ctx, tx, "Alice", "client-1", true)
		require.NoError(t, err)
		assert.True(t, ok)

		s, err = repo.GetTx(ctx, tx, "Alice")
		require.NoError(t, err)
		assert.Nil(t, s.ActiveCustomer)
		assert.Equal(t, 1, s.SaleCount)
	})
}

func TestSellerRepoAbandonKeepsCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSellerRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, []string{"Alice", "Bob"}))
		ok, err := repo.AssignCustomerTx(ctx, tx, "Alice", model.CustomerAssignment{ID: "client-1"})
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = repo.ReleaseCustomerTx(ctx, tx, "Alice", "client-1", false)
		require.NoError(t, err)
		require.True(t, ok)
	})

	sellers, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", sellers[0].Name)
	assert.Zero(t, sellers[0].SaleCount)
	assert.True(t, sellers[0].Available())
}

func TestSellerRepoIncrementSales(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSellerRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.ReplaceAllTx(ctx, tx, []string{"Alice"}))
		ok, err := repo.IncrementSalesTx(ctx, tx, "Alice")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.IncrementSalesTx(ctx, tx, "Zed")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.GetTx(ctx, tx, "Zed")
		assert.ErrorIs(t, err, ErrSellerNotFound)
	})
}

func TestEventRepoOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewEventRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		for i, kind := range []model.EventKind{model.EventDayStarted, model.EventCustomerTaken, model.EventSaleRecorded} {
			ev := model.Event{
				Kind:      kind,
				Message:   string(kind),
				Date:      "14/03/2025",
				Time:      "10:30:00",
				Timestamp: int64(1000 + i),
			}
			if kind != model.EventDayStarted {
				ev.Seller = "Alice"
			}
			id, err := repo.AppendTx(ctx, tx, ev)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), id)
		}
	})

	inTx(t, db, func(tx *sql.Tx) {
		all, err := repo.AllTx(ctx, tx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, model.EventDayStarted, all[0].Kind)
		assert.Empty(t, all[0].Seller)
		assert.Equal(t, "Alice", all[1].Seller)
		assert.Empty(t, all[1].CustomerID)

		recent, err := repo.RecentTx(ctx, tx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, model.EventSaleRecorded, recent[0].Kind)
		assert.Equal(t, model.EventCustomerTaken, recent[1].Kind)

		require.NoError(t, repo.DeleteAllTx(ctx, tx))
		all, err = repo.AllTx(ctx, tx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSessionRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		state, startedAt, err := repo.StateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, model.SessionInactive, state)
		assert.Empty(t, startedAt)

		require.NoError(t, repo.SetStateTx(ctx, tx, model.SessionActive, "2025-03-14T08:30:00Z"))
		require.NoError(t, repo.SetStateTx(ctx, tx, model.SessionActive, "2025-03-14T09:00:00Z"))
		state, startedAt, err = repo.StateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, model.SessionActive, state)
		assert.Equal(t, "2025-03-14T09:00:00Z", startedAt)

		require.NoError(t, repo.SetStateTx(ctx, tx, model.SessionInactive, "ignored"))
		state, startedAt, err = repo.StateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, model.SessionInactive, state)
		assert.Empty(t, startedAt)

		require.NoError(t, repo.SetStateTx(ctx, tx, model.SessionActive, "2025-03-14T10:00:00Z"))
		require.NoError(t, repo.ClearTx(ctx, tx))
		state, _, err = repo.StateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, model.SessionInactive, state)
	})
}

func TestLockingReadsMatchPlainReads(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sellers := NewSellerRepo(db)
	events := NewEventRepo(db)

	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, sellers.ReplaceAllTx(ctx, tx, []string{"Alice", "Bob"}))
		_, err := events.AppendTx(ctx, tx, model.Event{
			Kind: model.EventDayStarted, Message: "day started",
			Date: "14/03/2025", Time: "10:30:00", Timestamp: 1000,
		})
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		plain, err := sellers.ListTx(ctx, tx)
		require.NoError(t, err)
		locked, err := sellers.ListForUpdateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, plain, locked)

		all, err := events.AllTx(ctx, tx)
		require.NoError(t, err)
		lockedEvents, err := events.AllForUpdateTx(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, all, lockedEvents)
		require.Len(t, lockedEvents, 1)
	})
}
