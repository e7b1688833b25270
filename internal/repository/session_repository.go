package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seller-rotation/internal/model"
)

const (
	keySessionState     = "session_state"
	keySessionStartedAt = "session_started_at"
)

// SessionRepo stores the explicit day session tag in the session_config
// key/value table.  A missing row means the session is inactive.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// StateTx returns the session tag and the time the day was opened.
func (r *SessionRepo) StateTx(ctx context.Context, tx *sql.Tx) (model.SessionState, string, error) {
	state, err := getValue(ctx, tx, keySessionState)
	if err != nil {
		return "", "", err
	}
	if model.SessionState(state) != model.SessionActive {
		return model.SessionInactive, "", nil
	}
	startedAt, err := getValue(ctx, tx, keySessionStartedAt)
	if err != nil {
		return "", "", err
	}
	return model.SessionActive, startedAt, nil
}

// SetStateTx records the session tag.  startedAt is stored for active
// sessions and dropped otherwise.
func (r *SessionRepo) SetStateTx(ctx context.Context, tx *sql.Tx, state model.SessionState, startedAt string) error {
	if err := putValue(ctx, tx, keySessionState, string(state)); err != nil {
		return err
	}
	if state != model.SessionActive {
		_, err := tx.ExecContext(ctx, `DELETE FROM session_config WHERE config_key = ?`, keySessionStartedAt)
		return err
	}
	return putValue(ctx, tx, keySessionStartedAt, startedAt)
}

// ClearTx removes every configuration row.
func (r *SessionRepo) ClearTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM session_config`)
	return err
}

func getValue(ctx context.Context, tx *sql.Tx, key string) (string, error) {
	var v string
	err := tx.QueryRowContext(ctx, `SELECT config_value FROM session_config WHERE config_key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// putValue replaces a key inside the caller's transaction.  DELETE then
// INSERT keeps the statement portable between MySQL and SQLite.
func putValue(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_config WHERE config_key = ?`, key); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO session_config (config_key, config_value) VALUES (?, ?)`, key, value)
	return err
}
