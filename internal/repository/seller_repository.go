package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seller-rotation/internal/database"
	"github.com/iliyamo/seller-rotation/internal/model"
)

// SellerRepo provides access to the sellers table.  Every conditional
// write is a single UPDATE whose WHERE clause carries the expected
// current state; the returned bool tells the caller whether the row
// actually matched.  This compare-and-swap shape is what keeps the
// at-most-one-customer rule intact when several processes share the
// same database.
type SellerRepo struct {
	db   *sql.DB
	lock string
}

// NewSellerRepo returns a new SellerRepo bound to the provided database.
func NewSellerRepo(db *sql.DB) *SellerRepo {
	return &SellerRepo{db: db, lock: database.RowLockClause(db)}
}

const sellerColumns = `position, name, sale_count, customer_id, customer_start_date, customer_start_time`

// List returns every seller in insertion order.
func (r *SellerRepo) List(ctx context.Context) ([]model.Seller, error) {
	return listSellers(ctx, r.db, "")
}

// ListTx is List inside an existing transaction.
func (r *SellerRepo) ListTx(ctx context.Context, tx *sql.Tx) ([]model.Seller, error) {
	return listSellers(ctx, tx, "")
}

// ListForUpdateTx is ListTx as a locking read: on MySQL it sees rows
// committed by other transactions and holds them until tx ends.
func (r *SellerRepo) ListForUpdateTx(ctx context.Context, tx *sql.Tx) ([]model.Seller, error) {
	return listSellers(ctx, tx, r.lock)
}

func listSellers(ctx context.Context, q queryer, lock string) ([]model.Seller, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+sellerColumns+` FROM sellers ORDER BY position`+lock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sellers := []model.Seller{}
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		sellers = append(sellers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sellers, nil
}

// GetTx loads one seller by name.  It returns ErrSellerNotFound when the
// name is not on the roster.
func (r *SellerRepo) GetTx(ctx context.Context, tx *sql.Tx, name string) (model.Seller, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+sellerColumns+` FROM sellers WHERE name = ?`, name)
	s, err := scanSeller(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seller{}, ErrSellerNotFound
	}
	return s, err
}

// Count returns the number of sellers on the roster.
func (r *SellerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sellers`).Scan(&n)
	return n, err
}

// ReplaceAllTx removes the current roster and inserts names in order
// with a single multi-row INSERT.  Passing an empty slice only clears
// the roster.
func (r *SellerRepo) ReplaceAllTx(ctx context.Context, tx *sql.Tx, names []string) error {
	if err := r.DeleteAllTx(ctx, tx); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	query := `INSERT INTO sellers (name, sale_count) VALUES `
	args := make([]interface{}, 0, len(names))
	for i, n := range names {
		if i > 0 {
			query += ","
		}
		query += "(?, 0)"
		args = append(args, n)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateSeller
		}
		return err
	}
	return nil
}

// InsertTx appends a seller with zero sales at the end of the roster.
// It returns ErrDuplicateSeller when the name already exists.
func (r *SellerRepo) InsertTx(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sellers (name, sale_count) VALUES (?, 0)`, name)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateSeller
	}
	return err
}

// AssignCustomerTx attaches c to the seller only if the seller currently
// has no customer.  It reports false when no row matched, either because
// the seller does not exist or because it is already serving someone.
func (r *SellerRepo) AssignCustomerTx(ctx context.Context, tx *sql.Tx, name string, c model.CustomerAssignment) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE sellers
		 SET customer_id = ?, customer_start_date = ?, customer_start_time = ?
		 WHERE name = ? AND customer_id IS NULL`,
		c.ID, c.StartDate, c.StartTime, name,
	)
	return matched(res, err)
}

// ReleaseCustomerTx clears the seller's customer only if it is still
// customerID.  When countSale is true the sale counter is incremented in
// the same statement.
func (r *SellerRepo) ReleaseCustomerTx(ctx context.Context, tx *sql.Tx, name, customerID string, countSale bool) (bool, error) {
	inc := 0
	if countSale {
		inc = 1
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sellers
		 SET sale_count = sale_count + ?, customer_id = NULL, customer_start_date = NULL, customer_start_time = NULL
		 WHERE name = ? AND customer_id = ?`,
		inc, name, customerID,
	)
	return matched(res, err)
}

// IncrementSalesTx adds one sale without touching the active customer.
// It reports false when the seller does not exist.
func (r *SellerRepo) IncrementSalesTx(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE sellers SET sale_count = sale_count + 1 WHERE name = ?`, name)
	return matched(res, err)
}

// DeleteAllTx removes every seller.
func (r *SellerRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM sellers`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeller(row rowScanner) (model.Seller, error) {
	var (
		s                                 model.Seller
		customerID, startDate, startClock sql.NullString
	)
	if err := row.Scan(&s.Position, &s.Name, &s.SaleCount, &customerID, &startDate, &startClock); err != nil {
		return model.Seller{}, err
	}
	if customerID.Valid {
		s.ActiveCustomer = &model.CustomerAssignment{
			ID:        customerID.String,
			StartDate: startDate.String,
			StartTime: startClock.String,
		}
	}
	return s, nil
}

func matched(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
