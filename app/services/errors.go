package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so controllers can map it to an
// HTTP status without string matching.
type Kind int

const (
	KindInvalid  Kind = iota // malformed or missing input
	KindNotFound             // referenced entity absent
	KindConflict             // stock short, bad transition, duplicate name
	KindInternal             // storage or unexpected failure
)

// Error is the failure type every service method returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, logged but never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid builds a KindInvalid error.
func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. The cause stays attached for
// logging; clients only ever see the message.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the Kind of err, defaulting to KindInternal for
// anything that is not a *services.Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Ledger sentinels. Returned by ProductLedger implementations;
// PlaceOrder translates them into the taxonomy above with the
// offending product named.

var (
	// ErrProductNotFound means the ledger has no such product.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductInactive means the product exists but is disabled.
	ErrProductInactive = errors.New("product is not available")
)

// InsufficientStockError reports a reservation that would oversell.
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Name, e.Available)
}
