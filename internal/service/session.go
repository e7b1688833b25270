package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/seller-rotation/internal/model"
	"github.com/iliyamo/seller-rotation/internal/repository"
)

// StartDay replaces the roster with names, in the given order, every
// seller at zero sales and available, and marks the session active.
// The replacement, the session tag and the "day started" event are one
// transaction.
func (e *Engine) StartDay(ctx context.Context, names []string) error {
	const op = "start_day"
	roster, err := e.validateRoster(names)
	if err != nil {
		e.logResult(ctx, op, "", err)
		return err
	}
	err = e.mutate(ctx, op, func(tx *sql.Tx) error {
		if err := e.sellers.ReplaceAllTx(ctx, tx, roster); err != nil {
			if err == repository.ErrDuplicateSeller {
				return &ValidationError{Reason: ReasonDuplicateName, Detail: "duplicate seller names"}
			}
			return err
		}
		if err := e.sessions.SetStateTx(ctx, tx, model.SessionActive, e.clock.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, model.Event{
			Kind:    model.EventDayStarted,
			Message: "Day started with: " + strings.Join(roster, ", "),
		})
	})
	e.logResult(ctx, op, "", err)
	return err
}

func (e *Engine) validateRoster(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, &ValidationError{Reason: ReasonEmptyRoster, Detail: "at least one seller is required"}
	}
	if len(names) > e.maxSellers {
		return nil, &ValidationError{
			Reason: ReasonRosterTooLarge,
			Detail: fmt.Sprintf("at most %d sellers are allowed", e.maxSellers),
		}
	}
	roster := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := normalizeName(raw)
		if err := validateName(name); err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, &ValidationError{Reason: ReasonDuplicateName, Detail: fmt.Sprintf("seller %q is listed twice", name)}
		}
		seen[name] = struct{}{}
		roster = append(roster, name)
	}
	return roster, nil
}

// AddSeller appends a seller with zero sales to the roster and returns
// the normalized name.  Zero sales makes the newcomer an immediate
// candidate for the next customer.  Adding to an inactive session opens
// it.
func (e *Engine) AddSeller(ctx context.Context, name string) (string, error) {
	const op = "add_seller"
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		e.logResult(ctx, op, "", err)
		return "", err
	}
	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		if _, err := e.sellers.GetTx(ctx, tx, name); err == nil {
			return &ConflictError{Seller: name, Reason: ReasonDuplicateSeller}
		} else if err != repository.ErrSellerNotFound {
			return err
		}
		if err := e.sellers.InsertTx(ctx, tx, name); err != nil {
			if err == repository.ErrDuplicateSeller {
				return &ConflictError{Seller: name, Reason: ReasonDuplicateSeller}
			}
			return err
		}
		state, _, err := e.sessions.StateTx(ctx, tx)
		if err != nil {
			return err
		}
		if state != model.SessionActive {
			if err := e.sessions.SetStateTx(ctx, tx, model.SessionActive, e.clock.Now().UTC().Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return e.appendEvent(ctx, tx, model.Event{
			Kind:    model.EventSellerAdded,
			Message: fmt.Sprintf("Seller %s added to the day", name),
			Seller:  name,
		})
	})
	e.logResult(ctx, op, name, err)
	if err != nil {
		return "", err
	}
	return name, nil
}

// EndDay snapshots the roster and the full event log, then deletes both
// and marks the session inactive, all in one transaction.  The snapshot
// reads lock the rows, so a sale committed concurrently is either in the
// export or rejected.  The snapshot is handed to the export sink after
// commit, bounded by the publish timeout, and returned.  This cannot be
// undone.
func (e *Engine) EndDay(ctx context.Context) (model.DayExport, error) {
	const op = "end_day"
	var export model.DayExport
	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		sellers, err := e.sellers.ListForUpdateTx(ctx, tx)
		if err != nil {
			return err
		}
		history, err := e.events.AllForUpdateTx(ctx, tx)
		if err != nil {
			return err
		}
		export = buildExport(e.clock.Now(), sellers, history)
		if err := e.sellers.DeleteAllTx(ctx, tx); err != nil {
			return err
		}
		if err := e.events.DeleteAllTx(ctx, tx); err != nil {
			return err
		}
		return e.sessions.SetStateTx(ctx, tx, model.SessionInactive, "")
	})
	e.logResult(ctx, op, "", err)
	if err != nil {
		return model.DayExport{}, err
	}
	if e.exports != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishWait)
		defer cancel()
		if perr := e.exports.PublishDayClosed(pctx, export); perr != nil {
			e.logger.WarnContext(ctx, "day export not published", "service", "rotation", "error", perr)
		}
	}
	return export, nil
}

func buildExport(now time.Time, sellers []model.Seller, history []model.Event) model.DayExport {
	total := 0
	for _, s := range sellers {
		total += s.SaleCount
	}
	average := 0.0
	if len(sellers) > 0 {
		average = float64(total) / float64(len(sellers))
	}
	date, clock := Stamp(now)
	return model.DayExport{
		ClosedDate: date,
		ClosedTime: clock,
		Timestamp:  now.UTC().Format(time.RFC3339),
		Statistics: model.DayStatistics{
			TotalSellers: len(sellers),
			TotalSales:   total,
			AverageSales: fmt.Sprintf("%.2f", average),
		},
		Sellers: sellers,
		History: history,
	}
}

// ResetAll wipes sellers, events and stored configuration regardless of
// the session state.
func (e *Engine) ResetAll(ctx context.Context) error {
	const op = "reset_all"
	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		if err := e.sellers.DeleteAllTx(ctx, tx); err != nil {
			return err
		}
		if err := e.events.DeleteAllTx(ctx, tx); err != nil {
			return err
		}
		return e.sessions.ClearTx(ctx, tx)
	})
	e.logResult(ctx, op, "", err)
	return err
}

// GetState returns the roster, the next seller and the most recent
// events, read from one transaction so the three agree.
func (e *Engine) GetState(ctx context.Context) (model.State, error) {
	const op = "get_state"
	var state model.State
	err := e.withTx(ctx, op, func(tx *sql.Tx) error {
		sellers, err := e.sellers.ListTx(ctx, tx)
		if err != nil {
			return err
		}
		events, err := e.events.RecentTx(ctx, tx, e.recentEvents)
		if err != nil {
			return err
		}
		session, startedAt, err := e.sessions.StateTx(ctx, tx)
		if err != nil {
			return err
		}
		state = model.State{
			Session:    session,
			StartedAt:  startedAt,
			NextSeller: nextSellerPtr(sellers),
			Sellers:    sellers,
			Events:     events,
		}
		return nil
	})
	if err != nil {
		return model.State{}, err
	}
	return state, nil
}

// GetStats returns aggregate counts over the roster.
func (e *Engine) GetStats(ctx context.Context) (model.Stats, error) {
	sellers, err := e.sellers.List(ctx)
	if err != nil {
		return model.Stats{}, &StorageError{Op: "get_stats", Err: err}
	}
	stats := model.Stats{
		TotalSellers: len(sellers),
		NextSeller:   nextSellerPtr(sellers),
		Sellers:      sellers,
	}
	for _, s := range sellers {
		if s.Available() {
			stats.AvailableSellers++
		} else {
			stats.OccupiedSellers++
		}
		stats.TotalSales += s.SaleCount
	}
	return stats, nil
}

// Health pings the store and returns the roster size.
func (e *Engine) Health(ctx context.Context) (int, error) {
	if err := e.db.PingContext(ctx); err != nil {
		return 0, &StorageError{Op: "health", Err: err}
	}
	n, err := e.sellers.Count(ctx)
	if err != nil {
		return 0, &StorageError{Op: "health", Err: err}
	}
	return n, nil
}
