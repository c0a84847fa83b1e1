package domain

import (
	"errors"
	"fmt"
	"time"
)

// Failure kinds. Adapters match on these with errors.Is, never on message text.
var (
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("todo not found")
	ErrForbidden         = errors.New("not authorized")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// Kind names a failure category.
type Kind string

const (
	KindNone              Kind = ""
	KindUnauthenticated   Kind = "unauthenticated"
	KindRateLimited       Kind = "rate_limited"
	KindValidation        Kind = "validation_failed"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindIllegalTransition Kind = "illegal_transition"
	KindStoreUnavailable  Kind = "store_unavailable"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrRateLimited, KindRateLimited},
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrIllegalTransition, KindIllegalTransition},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf classifies err. Errors outside the taxonomy are reported as
// KindStoreUnavailable since they can only come from a collaborator.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStoreUnavailable
}

// ValidationError reports the first field constraint a payload broke.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RateLimitedError carries the delay after which the caller may retry.
type RateLimitedError struct {
	Class      string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s for %s: retry in %dms", ErrRateLimited, e.Class, e.RetryAfterMs())
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// RetryAfterMs is the retry delay in whole milliseconds, rounded up.
func (e *RateLimitedError) RetryAfterMs() int64 {
	return CeilMillis(e.RetryAfter)
}

// TransitionError is returned when a status change is not in the lifecycle graph.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// StoreError wraps a failure of a storage or infrastructure collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// NewStoreError wraps err unless it is nil or already classified.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindStoreUnavailable {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// CeilMillis converts d to milliseconds, rounding any remainder up.
func CeilMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}
