// Package errs defines the error-kind taxonomy shared across the wiki index
// core. Every component returns one of these typed errors rather than ad-hoc
// strings, so the HTTP boundary is the sole place that translates a kind
// into a status code.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind is one of the error categories from the core's error handling design.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindValidationFailed   Kind = "validation_failed"
	KindPermissionDenied   Kind = "permission_denied"
	KindConflict           Kind = "conflict"
	KindBusy               Kind = "busy"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal           Kind = "internal"
)

// Error is the single error type used throughout the core. Components
// attach a Kind plus operation-specific context; the HTTP boundary maps
// Kind to a status code and never has to inspect Underlying.
type Error struct {
	Kind       Kind
	Op         string // operation that failed, e.g. "SpaceRegistry.Create"
	Resource   string // e.g. "space:acme" or "docKey"
	Underlying error
	Timestamp  time.Time
}

// New creates a new Error with the given kind and operation context.
func New(kind Kind, op string, err error) *Error {
	return &Error{
		Kind:       kind,
		Op:         op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithResource attaches the resource identifier the failure relates to.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s) failed: %v", e.Kind, e.Op, e.Resource, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Kind, e.Op, e.Underlying)
}

// Unwrap lets errors.Is/As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Convenience constructors mirroring spec.md §7.

func NotFound(op, resource string, err error) *Error {
	return New(KindNotFound, op, err).WithResource(resource)
}

func ValidationFailed(op string, err error) *Error {
	return New(KindValidationFailed, op, err)
}

func PermissionDenied(op, resource string) *Error {
	return New(KindPermissionDenied, op, errors.New("permission denied")).WithResource(resource)
}

func Conflict(op, resource string, err error) *Error {
	return New(KindConflict, op, err).WithResource(resource)
}

func Busy(op string) *Error {
	return New(KindBusy, op, errors.New("operation already in progress"))
}

func UpstreamUnavailable(op string, err error) *Error {
	return New(KindUpstreamUnavailable, op, err)
}

func Internal(op string, err error) *Error {
	return New(KindInternal, op, err)
}

// MultiError aggregates independent failures, e.g. per-folder failures
// during an AI-context generation run that must not abort the whole pass.
type MultiError struct {
	Errors []error
}

// NewMultiError filters out nils and returns an aggregate; returns nil if
// nothing remains.
func NewMultiError(errsIn []error) error {
	filtered := make([]error, 0, len(errsIn))
	for _, e := range errsIn {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error {
	return e.Errors
}
