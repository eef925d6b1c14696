// Package apperrors defines the closed error taxonomy shared by every layer
// of the gateway. Kinds are string enums, not Go types, so they serialize
// directly into HTTP and SSE error bodies.
package apperrors

import "fmt"

// Kind classifies an error for HTTP/SSE surfacing. Never extend this set
// implicitly — a new failure mode gets a new named Kind here first.
type Kind string

const (
	KindUsage           Kind = "UsageError"
	KindBudgetExceeded  Kind = "BudgetExceeded"
	KindTimeout         Kind = "Timeout"
	KindUnavailable     Kind = "Unavailable"
	KindDataIntegrity   Kind = "DataIntegrityError"
	KindCancelled       Kind = "CancelledError"
	KindInternal        Kind = "InternalError"
)

// Error is the structured error carried across component boundaries. It
// never leaks internals for Kind == KindInternal — Detail is cleared by
// Sanitize before reaching an external response.
type Error struct {
	Kind          Kind
	Detail        string
	CorrelationID string

	// wrapped is kept for %w unwrapping / logging, never serialized.
	wrapped error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Sanitize returns a copy safe to serialize to an external caller: 5xx kinds
// never carry Detail past the log line.
func (e *Error) Sanitize() *Error {
	cp := *e
	if cp.Kind == KindInternal || cp.Kind == KindUnavailable {
		cp.Detail = ""
	}
	cp.wrapped = nil
	return &cp
}

// New builds an Error of the given kind with a correlation id attached.
func New(kind Kind, correlationID, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, CorrelationID: correlationID}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, correlationID string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: kind, Detail: detail, CorrelationID: correlationID, wrapped: err}
}

// HTTPStatus returns the status code a Kind maps to, per the taxonomy in
// SPEC_FULL.md §7.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUsage:
		return 400
	case KindBudgetExceeded:
		return 429
	case KindTimeout:
		return 504
	case KindUnavailable:
		return 503
	case KindCancelled:
		return 499
	case KindDataIntegrity:
		// Never surfaced to external callers; 500 is the defensive default
		// if one ever escapes past the ETL dead-letter boundary.
		return 500
	case KindInternal:
		return 500
	default:
		return 500
	}
}
