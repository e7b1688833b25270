package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/seller-rotation/internal/model"
	"github.com/iliyamo/seller-rotation/internal/repository"
)

// TakeCustomer assigns a new customer to the named seller.  Two
// concurrent calls for the same seller cannot both succeed: the
// assignment is a conditional UPDATE on "no customer", and the loser
// receives a ConflictError.
func (e *Engine) TakeCustomer(ctx context.Context, name string) (model.CustomerAssignment, error) {
	const op = "take_customer"
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return model.CustomerAssignment{}, err
	}
	date, clock := Stamp(e.clock.Now())
	customer := model.CustomerAssignment{ID: e.newID(), StartDate: date, StartTime: clock}

	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		ok, err := e.sellers.AssignCustomerTx(ctx, tx, name, customer)
		if err != nil {
			return err
		}
		if !ok {
			return e.explainMiss(ctx, tx, name, ReasonSellerBusy)
		}
		return e.appendEvent(ctx, tx, model.Event{
			Kind:       model.EventCustomerTaken,
			Message:    fmt.Sprintf("Customer taken by %s", name),
			Seller:     name,
			CustomerID: customer.ID,
		})
	})
	e.logResult(ctx, op, name, err)
	if err != nil {
		return model.CustomerAssignment{}, err
	}
	return customer, nil
}

// AbandonCustomer releases the seller's customer without counting a
// sale.  The seller keeps its roster position.
func (e *Engine) AbandonCustomer(ctx context.Context, name string) error {
	return e.releaseCustomer(ctx, "abandon_customer", name, false)
}

// RecordSale completes the seller's current customer: the sale counter
// is incremented and the seller becomes available again.
func (e *Engine) RecordSale(ctx context.Context, name string) error {
	return e.releaseCustomer(ctx, "record_sale", name, true)
}

func (e *Engine) releaseCustomer(ctx context.Context, op, name string, countSale bool) error {
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return err
	}
	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		seller, err := e.sellers.GetTx(ctx, tx, name)
		if err == repository.ErrSellerNotFound {
			return &NotFoundError{Seller: name}
		}
		if err != nil {
			return err
		}
		if seller.ActiveCustomer == nil {
			return &ConflictError{Seller: name, Reason: ReasonSellerIdle}
		}
		customerID := seller.ActiveCustomer.ID
		ok, err := e.sellers.ReleaseCustomerTx(ctx, tx, name, customerID, countSale)
		if err != nil {
			return err
		}
		if !ok {
			// Another caller released this customer since the read.
			return &ConflictError{Seller: name, Reason: ReasonSellerIdle}
		}
		ev := model.Event{
			Kind:       model.EventCustomerAbandoned,
			Message:    fmt.Sprintf("Customer abandoned by %s", name),
			Seller:     name,
			CustomerID: customerID,
		}
		if countSale {
			ev.Kind = model.EventSaleRecorded
			ev.Message = fmt.Sprintf("Sale completed by %s", name)
		}
		return e.appendEvent(ctx, tx, ev)
	})
	e.logResult(ctx, op, name, err)
	return err
}

// RecordDirectSale counts a sale made outside the take/assign flow.  An
// active customer, if any, is left untouched.
func (e *Engine) RecordDirectSale(ctx context.Context, name string) error {
	const op = "record_direct_sale"
	name = normalizeName(name)
	if err := validateName(name); err != nil {
		return err
	}
	err := e.mutate(ctx, op, func(tx *sql.Tx) error {
		ok, err := e.sellers.IncrementSalesTx(ctx, tx, name)
		if err != nil {
			return err
		}
		if !ok {
			return &NotFoundError{Seller: name}
		}
		return e.appendEvent(ctx, tx, model.Event{
			Kind:    model.EventDirectSaleRecorded,
			Message: fmt.Sprintf("Direct sale recorded by %s", name),
			Seller:  name,
		})
	})
	e.logResult(ctx, op, name, err)
	return err
}
