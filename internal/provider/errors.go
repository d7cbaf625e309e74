package provider

import (
	"errors"
	"fmt"
)

// Kind classifies an adapter error for retry decisions.
type Kind int

const (
	// KindTransient covers network failures, throttling and
	// eventual-consistency lag; the engine retries these with backoff.
	KindTransient Kind = iota
	// KindPermanent covers invalid configuration, missing prerequisites
	// and authorization denials; surfaced immediately, never retried.
	KindPermanent
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// Error is a classified adapter error, wrapped with the resource key and
// attempted operation so the persisted lastError is self-describing.
type Error struct {
	Kind Kind
	Key  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transientf builds a retryable adapter error.
func Transientf(key, op, format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Key: key, Op: op, Err: fmt.Errorf(format, args...)}
}

// Permanentf builds a non-retryable adapter error.
func Permanentf(key, op, format string, args ...any) *Error {
	return &Error{Kind: KindPermanent, Key: key, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches key, operation and a classification to an underlying error.
// A nil err returns nil.
func Wrap(kind Kind, key, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		// Already classified closer to the API call; keep the inner kind.
		return &Error{Kind: pe.Kind, Key: key, Op: op, Err: pe.Err}
	}
	return &Error{Kind: kind, Key: key, Op: op, Err: err}
}

// IsTransient reports whether err is classified as retryable.
// Unclassified errors are treated as permanent.
func IsTransient(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	return false
}
