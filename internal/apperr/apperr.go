// Package apperr defines the error kinds surfaced by the ledger components.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// ErrImbalance marks a transaction whose debits and credits differ by more
// than the tolerance.
var ErrImbalance = errors.New("debits must equal credits")

// storeMessage is the only text a caller sees for store failures.
const storeMessage = "internal store failure"

// Error is a classified error. Message is safe to show to an end caller;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindStore {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a caller-fixable input error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Imbalance returns a validation error wrapping ErrImbalance.
func Imbalance(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...), Err: ErrImbalance}
}

// Conflict returns a uniqueness or usage constraint violation.
func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns an error for a missing id.
func NotFound(op, what string, id int64) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %d not found", what, id)}
}

// Store wraps a store failure. The cause is kept for logging only.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStore, Op: op, Message: storeMessage, Err: err}
}

// KindOf returns the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return storeMessage
}
