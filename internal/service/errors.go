package service

import (
	"errors"
	"fmt"
)

// Reason is a stable, enumerable failure code surfaced to callers next
// to the human readable message.
type Reason string

const (
	ReasonEmptyRoster     Reason = "empty_roster"
	ReasonRosterTooLarge  Reason = "roster_too_large"
	ReasonEmptyName       Reason = "empty_name"
	ReasonNameTooLong     Reason = "name_too_long"
	ReasonDuplicateName   Reason = "duplicate_name"
	ReasonSellerNotFound  Reason = "seller_not_found"
	ReasonSellerBusy      Reason = "seller_busy"
	ReasonSellerIdle      Reason = "seller_idle"
	ReasonDuplicateSeller Reason = "duplicate_seller"
	ReasonStorage         Reason = "storage_unavailable"
)

// ValidationError reports malformed input.  It is never retried.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "validation failed: " + string(e.Reason)
	}
	return "validation failed: " + e.Detail
}

// NotFoundError reports an operation on a seller that is not on the roster.
type NotFoundError struct {
	Seller string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("seller %q not found", e.Seller)
}

// ConflictError reports a precondition violated by the current state,
// including the losing side of a race.  Callers may re-read the state
// and retry; the engine never does.
type ConflictError struct {
	Seller string
	Reason Reason
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonSellerBusy:
		return fmt.Sprintf("seller %q already has a customer", e.Seller)
	case ReasonSellerIdle:
		return fmt.Sprintf("seller %q has no customer", e.Seller)
	case ReasonDuplicateSeller:
		return fmt.Sprintf("seller %q already exists", e.Seller)
	}
	return fmt.Sprintf("conflict on seller %q", e.Seller)
}

// StorageError wraps a failure of the underlying store.  Operations are
// all-or-nothing, so the caller may safely retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err unless it already carries an engine error type.
func storageErr(op string, err error) error {
	if err == nil || ErrorKind(err) != "unexpected" {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ErrorKind maps an error to a stable label used by the HTTP layer and
// in logs.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		vErr *ValidationError
		nErr *NotFoundError
		cErr *ConflictError
		sErr *StorageError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &nErr):
		return "not_found"
	case errors.As(err, &cErr):
		return "conflict"
	case errors.As(err, &sErr):
		return "storage"
	}
	return "unexpected"
}

// ErrorReason extracts the enumerable reason carried by err.
func ErrorReason(err error) Reason {
	var (
		vErr *ValidationError
		nErr *NotFoundError
		cErr *ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		return vErr.Reason
	case errors.As(err, &nErr):
		return ReasonSellerNotFound
	case errors.As(err, &cErr):
		return cErr.Reason
	}
	return ReasonStorage
}
