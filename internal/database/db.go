package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Supported values for the DB_DRIVER setting.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Settings selects and locates the roster database.
type Settings struct {
	Driver     string
	SQLitePath string
	User       string
	Pass       string
	Host       string
	Port       string
	Name       string
}

// Open connects to the configured driver, verifies the connection and
// applies the schema.
func Open(ctx context.Context, s Settings) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch s.Driver {
	case DriverMySQL:
		db, err = OpenMySQL(s.User, s.Pass, s.Host, s.Port, s.Name)
	case DriverSQLite, "":
		db, err = OpenSQLite(s.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", s.Driver)
	}
	if err != nil {
		return nil, err
	}
	driver := s.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	if err := Migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file.  SQLite allows a
// single writer, so the pool is pinned to one connection: transactions
// are serialized and concurrent callers queue on the pool instead of
// failing with SQLITE_BUSY.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping verifies the connection with a timeout.
func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// RowLockClause returns the suffix that turns a SELECT inside a
// transaction into a locking read.  MySQL needs FOR UPDATE to see rows
// committed after the transaction's snapshot and to block writers until
// commit; SQLite serializes writers already and has no such clause.
func RowLockClause(db *sql.DB) string {
	if _, ok := db.Driver().(*mysql.MySQLDriver); ok {
		return " FOR UPDATE"
	}
	return ""
}
