// Package domainerrors defines coded errors for the domain layer.
//
// Services return these so transports can map them to status codes without
// string matching, and so callers can branch on the Code rather than the
// message. Infrastructure facts (not found, conflict) originate as sentinels
// in pkg/sentinel and are wrapped into coded errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	// CodeSchemaViolation marks a malformed request rejected before
	// validation runs. Fatal to the call.
	CodeSchemaViolation Code = "schema_violation"

	// CodeAdvisoryUnavailable marks a failed or timed-out advisory call.
	// Non-fatal: validation degrades to rule-only analysis.
	CodeAdvisoryUnavailable Code = "advisory_unavailable"

	// CodeTerminalState marks a transition attempted out of a terminal
	// status (completed, rejected, cancelled).
	CodeTerminalState Code = "terminal_state_violation"

	// CodeMissingReason marks a transition with an empty reason.
	CodeMissingReason Code = "missing_reason"

	// CodeInvalidTransition marks a (from, to) pair absent from the
	// status graph.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeUnauthorized marks an actor whose role lacks write permission.
	CodeUnauthorized Code = "unauthorized"

	// CodeCredentialRequired marks a terminal-target transition without a
	// freshly verified credential.
	CodeCredentialRequired Code = "credential_required"

	// CodeConcurrentModification marks a conditional write that lost the
	// race. The caller must retry with fresh record state.
	CodeConcurrentModification Code = "concurrent_modification"

	// CodePersistenceFailure marks a store failure. The operation must not
	// appear to have succeeded.
	CodePersistenceFailure Code = "persistence_failure"

	CodeNotFound   Code = "not_found"
	CodeValidation Code = "validation"
	CodeInternal   Code = "internal"
)

// Error carries a Code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message. Returns nil for a nil err.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code of err, or CodeInternal when err is not
// a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the transport layer should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeSchemaViolation, CodeValidation, CodeMissingReason, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeCredentialRequired:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTerminalState, CodeConcurrentModification:
		return http.StatusConflict
	case CodeAdvisoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
