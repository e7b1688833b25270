// Package repository defines the SQL data access layer of the rotation
// engine and the error values shared by its repositories.  Callers own
// transactions: methods suffixed with Tx run on the supplied *sql.Tx and
// never commit or roll back themselves.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrSellerNotFound is returned when no seller row matches the given name.
var ErrSellerNotFound = errors.New("seller not found")

// ErrDuplicateSeller is returned when inserting a name that is already
// on the roster.
var ErrDuplicateSeller = errors.New("seller already exists")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
