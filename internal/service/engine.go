package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/iliyamo/seller-rotation/internal/model"
	"github.com/iliyamo/seller-rotation/internal/repository"
)

const (
	// DefaultMaxSellers bounds the roster given to StartDay.
	DefaultMaxSellers = 20
	// DefaultRecentEvents bounds the event list returned by GetState.
	DefaultRecentEvents = 50
	// DefaultPublishTimeout bounds the hand-over of a closed day to the
	// export sink.
	DefaultPublishTimeout = 5 * time.Second
)

// ExportSink receives the snapshot of every closed day.  Persisting or
// shipping it is the sink's business; the engine only hands it over.
type ExportSink interface {
	PublishDayClosed(ctx context.Context, export model.DayExport) error
}

// Engine runs the rotation rules against the roster store.  It holds no
// roster state of its own: every operation reads and writes the database
// inside one transaction, so any number of engines may share a store.
type Engine struct {
	db       *sql.DB
	sellers  *repository.SellerRepo
	events   *repository.EventRepo
	sessions *repository.SessionRepo

	clock        Clock
	newID        func() string
	logger       *slog.Logger
	exports      ExportSink
	notify       func(context.Context)
	maxSellers   int
	recentEvents int
	publishWait  time.Duration
	stamps       monotonic
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithIDGenerator replaces the customer id generator.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithExportSink registers the receiver of closed-day exports.
func WithExportSink(s ExportSink) Option { return func(e *Engine) { e.exports = s } }

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option { return func(e *Engine) { e.publishWait = d } }

// WithChangeNotifier registers f to run after every committed mutation,
// whoever triggered it.  The read cache uses it to drop stale responses.
func WithChangeNotifier(f func(context.Context)) Option { return func(e *Engine) { e.notify = f } }

// WithMaxSellers overrides DefaultMaxSellers.
func WithMaxSellers(n int) Option { return func(e *Engine) { e.maxSellers = n } }

// WithRecentEvents overrides DefaultRecentEvents.
func WithRecentEvents(n int) Option { return func(e *Engine) { e.recentEvents = n } }

// NewEngine builds an Engine over db.  It panics when db is nil.
func NewEngine(db *sql.DB, opts ...Option) *Engine {
	if db == nil {
		panic("nil database passed to NewEngine")
	}
	e := &Engine{
		db:           db,
		sellers:      repository.NewSellerRepo(db),
		events:       repository.NewEventRepo(db),
		sessions:     repository.NewSessionRepo(db),
		clock:        realClock{},
		newID:        NewCustomerID,
		maxSellers:   DefaultMaxSellers,
		recentEvents: DefaultRecentEvents,
		publishWait:  DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.maxSellers <= 0 {
		e.maxSellers = DefaultMaxSellers
	}
	if e.recentEvents <= 0 {
		e.recentEvents = DefaultRecentEvents
	}
	if e.publishWait <= 0 {
		e.publishWait = DefaultPublishTimeout
	}
	return e
}

// withTx runs fn inside a transaction and commits when fn succeeds.
// Errors returned by fn are passed through untouched; failures to begin
// or commit become StorageError.
func (e *Engine) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return storageErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: op, Err: err}
	}
	committed = true
	return nil
}

// mutate is withTx for operations that change stored state.  The change
// notifier runs once the transaction has committed.
func (e *Engine) mutate(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if err := e.withTx(ctx, op, fn); err != nil {
		return err
	}
	if e.notify != nil {
		e.notify(context.WithoutCancel(ctx))
	}
	return nil
}

// appendEvent stamps ev with the display clock and a monotonic
// timestamp and writes it inside tx.
func (e *Engine) appendEvent(ctx context.Context, tx *sql.Tx, ev model.Event) error {
	now := e.clock.Now()
	ev.Date, ev.Time = Stamp(now)
	ev.Timestamp = e.stamps.next(now)
	_, err := e.events.AppendTx(ctx, tx, ev)
	return err
}

// explainMiss turns a compare-and-swap miss into the right error: the
// seller is either unknown or not in the expected state.
func (e *Engine) explainMiss(ctx context.Context, tx *sql.Tx, name string, reason Reason) error {
	if _, err := e.sellers.GetTx(ctx, tx, name); err != nil {
		if err == repository.ErrSellerNotFound {
			return &NotFoundError{Seller: name}
		}
		return err
	}
	return &ConflictError{Seller: name, Reason: reason}
}

func (e *Engine) logResult(ctx context.Context, op, seller string, err error) {
	logger := e.logger.With("service", "rotation", "operation", op)
	if seller != "" {
		logger = logger.With("seller", seller)
	}
	switch kind := ErrorKind(err); kind {
	case "":
		logger.InfoContext(ctx, "operation completed")
	case "storage", "unexpected":
		logger.ErrorContext(ctx, "operation failed", "error_kind", kind, "error", err)
	default:
		logger.WarnContext(ctx, "operation rejected", "error_kind", kind, "reason", string(ErrorReason(err)))
	}
}
