package contracts

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure the pipeline can surface. All kinds
// are recovered at the orchestrator boundary; nothing escapes to the
// transport layer as an unhandled fault.
type ErrorKind string

const (
	// KindValidation covers malformed envelopes and scope mismatches.
	KindValidation ErrorKind = "VALIDATION_ERROR"
	// KindUnsupportedFunction means the (domain, function) pair is not
	// in the registry at all.
	KindUnsupportedFunction ErrorKind = "UNSUPPORTED_FUNCTION"
	// KindNotImplemented means the pair is registered but has no
	// handler. Kept distinct from KindUnsupportedFunction for
	// operability: a registry/handler drift is a deploy bug, not a
	// caller bug.
	KindNotImplemented ErrorKind = "FUNCTION_NOT_IMPLEMENTED"
	// KindMissingInput is a handler-level input contract violation.
	KindMissingInput ErrorKind = "MISSING_REQUIRED_INPUT"
	// KindConfidenceTooLow is a quality gate rejection.
	KindConfidenceTooLow ErrorKind = "CONFIDENCE_TOO_LOW"
	// KindConfirmationRequired is an impact gate trip or a
	// handler-declared escalation. Distinct status so clients can
	// render a confirm/cancel flow rather than a hard failure.
	KindConfirmationRequired ErrorKind = "CONFIRMATION_REQUIRED"
	// KindInternal is any uncaught fault during execution. Surfaced
	// with a correlation ID only, never internal detail.
	KindInternal ErrorKind = "INTERNAL_ERROR"
)

// HTTPStatus maps an error kind to its response status.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindUnsupportedFunction, KindMissingInput:
		return http.StatusBadRequest
	case KindNotImplemented:
		return http.StatusNotImplemented
	case KindConfidenceTooLow:
		return http.StatusUnprocessableEntity
	case KindConfirmationRequired:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed error every pipeline stage returns. Field is set for
// input contract violations where the offending field is known;
// CorrelationID is set for internal errors so operators can find the
// server-side log entry.
type Error struct {
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	Field         string    `json:"field,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewValidationError reports a malformed envelope or scope mismatch.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewUnsupportedFunction reports an unregistered (domain, function) pair.
func NewUnsupportedFunction(domain, function string) *Error {
	return &Error{
		Kind:    KindUnsupportedFunction,
		Message: fmt.Sprintf("function %s.%s is not registered", domain, function),
	}
}

// NewNotImplemented reports a registered pair with no handler.
func NewNotImplemented(domain, function string) *Error {
	return &Error{
		Kind:    KindNotImplemented,
		Message: fmt.Sprintf("function %s.%s is registered but not implemented", domain, function),
	}
}

// NewMissingInput reports a missing or malformed required input field.
func NewMissingInput(field, detail string) *Error {
	return &Error{Kind: KindMissingInput, Message: detail, Field: field}
}

// NewConfidenceTooLow reports a quality gate rejection with both the
// observed confidence and the configured minimum.
func NewConfidenceTooLow(observed, minimum float64) *Error {
	return &Error{
		Kind:    KindConfidenceTooLow,
		Message: fmt.Sprintf("confidence %.3f is below the required minimum %.3f", observed, minimum),
	}
}

// NewConfirmationRequired reports an escalation with the caller-facing
// explanation (computed delta and ceiling, or the handler's own message).
func NewConfirmationRequired(message string) *Error {
	return &Error{Kind: KindConfirmationRequired, Message: message}
}

// NewInternal wraps an unexpected fault behind an opaque message carrying
// only a correlation ID. The underlying error is logged server-side, not here.
func NewInternal(correlationID string) *Error {
	return &Error{
		Kind:          KindInternal,
		Message:       fmt.Sprintf("an unexpected error occurred (correlation id %s)", correlationID),
		CorrelationID: correlationID,
	}
}
