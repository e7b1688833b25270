package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seller-rotation/internal/database"
	"github.com/iliyamo/seller-rotation/internal/model"
)

// EventRepo provides append-only access to the session event log.
// Rows are never updated; the whole log is removed when a day is closed
// or the system is reset.
type EventRepo struct {
	db   *sql.DB
	lock string
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db, lock: database.RowLockClause(db)}
}

const eventColumns = `id, kind, message, event_date, event_time, seller, customer_id, ts_ms`

// AppendTx inserts ev and returns its storage id.  The ID field of ev is
// ignored.
func (r *EventRepo) AppendTx(ctx context.Context, tx *sql.Tx, ev model.Event) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO session_events (kind, message, event_date, event_time, seller, customer_id, ts_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Kind), ev.Message, ev.Date, ev.Time, nullable(ev.Seller), nullable(ev.CustomerID), ev.Timestamp,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentTx returns at most limit events, newest first.
func (r *EventRepo) RecentTx(ctx context.Context, tx *sql.Tx, limit int) ([]model.Event, error) {
	return listEvents(ctx, tx, `SELECT `+eventColumns+` FROM session_events ORDER BY id DESC LIMIT ?`, limit)
}

// AllTx returns the complete log, oldest first.
func (r *EventRepo) AllTx(ctx context.Context, tx *sql.Tx) ([]model.Event, error) {
	return listEvents(ctx, tx, `SELECT `+eventColumns+` FROM session_events ORDER BY id ASC`)
}

// AllForUpdateTx is AllTx as a locking read, so no event can be appended
// on MySQL between the read and the end of tx.
func (r *EventRepo) AllForUpdateTx(ctx context.Context, tx *sql.Tx) ([]model.Event, error) {
	return listEvents(ctx, tx, `SELECT `+eventColumns+` FROM session_events ORDER BY id ASC`+r.lock)
}

// DeleteAllTx clears the log.
func (r *EventRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM session_events`)
	return err
}

func listEvents(ctx context.Context, q queryer, query string, args ...any) ([]model.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []model.Event{}
	for rows.Next() {
		var (
			ev                 model.Event
			kind               string
			seller, customerID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.Message, &ev.Date, &ev.Time, &seller, &customerID, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Kind = model.EventKind(kind)
		ev.Seller = seller.String
		ev.CustomerID = customerID.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
