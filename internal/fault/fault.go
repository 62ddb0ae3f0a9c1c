// Package fault defines the error kinds exposed to callers so the UI can
// branch on what went wrong without knowing transport or workflow internals.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetwork           Kind = "network"
	KindAuthRequired      Kind = "auth_required"
	KindUnknownEncoding   Kind = "unknown_encoding"
	KindIllegalTransition Kind = "illegal_transition"
	KindAlreadyResolved   Kind = "already_resolved"
	KindOrphanedRevision  Kind = "orphaned_revision"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindBackend           Kind = "backend"
	KindUnknown           Kind = "unknown"
)

// Kinder is implemented by every typed error this module raises.
type Kinder interface {
	error
	Kind() Kind
}

// KindOf classifies err, walking wrapped chains. Untyped errors map to
// KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// ValidationError reports a write rejected before any network call because a
// required field was missing or a forbidden one supplied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

// AlreadyResolvedError reports a decision attempted against a request that a
// reviewer has already closed.
type AlreadyResolvedError struct {
	RequestID int64
	Status    string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request %d already resolved (%s)", e.RequestID, e.Status)
}

func (e *AlreadyResolvedError) Kind() Kind { return KindAlreadyResolved }
