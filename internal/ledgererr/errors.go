// Package ledgererr defines the error taxonomy shared by the ledger core,
// its stores and the HTTP boundary. Every failure surfaced by a ledger
// operation carries exactly one Kind.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind classifies a ledger failure.
type Kind int

const (
	// KindValidation marks malformed input, rejected before any store
	// interaction.
	KindValidation Kind = iota + 1
	// KindReferentialIntegrity marks a referenced parent or account that is
	// missing or owned by another user.
	KindReferentialIntegrity
	// KindIntegrityConflict marks a delete blocked by a live dependent.
	KindIntegrityConflict
	// KindNotFound marks an operation targeting a nonexistent owned entity.
	KindNotFound
	// KindConcurrencyConflict marks a store-detected write conflict.
	KindConcurrencyConflict
	// KindStore marks an underlying storage failure.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReferentialIntegrity:
		return "referential integrity"
	case KindIntegrityConflict:
		return "integrity conflict"
	case KindNotFound:
		return "not found"
	case KindConcurrencyConflict:
		return "concurrency conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a kinded ledger error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind carried by err, or KindStore if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
