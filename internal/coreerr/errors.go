// Package coreerr defines the typed error taxonomy THE CORE returns, so the
// HTTP layer can map failures to status codes (spec §7) without string
// matching. The teacher wraps plain errors with fmt.Errorf("...: %w", err);
// this generalizes that idiom with a stable Kind so the API boundary has
// something structured to switch on.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is the stable taxonomy of core-level failures.
type Kind string

const (
	InvalidRequest    Kind = "invalid_request"
	Unauthorized      Kind = "unauthorized"
	NotFound          Kind = "not_found"
	HouseholdMismatch Kind = "household_mismatch"
	Conflict          Kind = "conflict"
	ProviderFailure   Kind = "provider_failure"
	ExtractorFailure  Kind = "extractor_failure"
)

// Error is a Kind-tagged error carrying a human-readable message and an
// optional list of field-level issues (used for invalid_request bodies).
type Error struct {
	Kind    Kind
	Message string
	Issues  []Issue
	wrapped error
}

// Issue describes a single invalid-request field violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to an underlying error, preserving it for errors.Is/As.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// Invalid builds an invalid_request error carrying field issues.
func Invalid(issues ...Issue) *Error {
	msg := "request failed validation"
	if len(issues) == 1 {
		msg = issues[0].Message
	}
	return &Error{Kind: InvalidRequest, Message: msg, Issues: issues}
}

// NotFoundf builds a not_found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return Newf(NotFound, format, args...)
}

// HouseholdMismatchf builds a household_mismatch error, which the API layer
// maps to 404 (not 403) to avoid revealing that the resource exists for a
// different household.
func HouseholdMismatchf(format string, args ...any) *Error {
	return Newf(HouseholdMismatch, format, args...)
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) *Error {
	return Newf(Conflict, format, args...)
}

// KindOf extracts the Kind from err, returning ("", false) if err is not
// (or does not wrap) a *Error.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
