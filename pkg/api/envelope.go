// Package api — HTTP surface for the Canopy AI action pipeline.
//
// Every response uses one invariant envelope: {success, data, error}.
// Callers never branch on whether data vs. error is populated
// independently of the success flag.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/verdantlabs/canopy/core/pkg/contracts"
)

// Envelope is the invariant response shape.
type Envelope struct {
	Success bool       `json:"success"`
	Data    *CallData  `json:"data"`
	Error   *ErrorBody `json:"error"`
}

// CallData is the success payload of an ai/call invocation.
type CallData struct {
	Result     any                      `json:"result"`
	Confidence float64                  `json:"confidence"`
	Writes     []contracts.WriteRecord  `json:"writes"`
	External   *contracts.ReviewOutcome `json:"external"`
}

// ErrorBody is the failure payload: a machine-readable code and a
// human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteSuccess renders a 200 envelope around the call data.
func WriteSuccess(w http.ResponseWriter, data *CallData) {
	if data.Writes == nil {
		data.Writes = []contracts.WriteRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(&Envelope{Success: true, Data: data})
}

// WriteTypedError renders a failure envelope with the status mapped from
// the error kind.
func WriteTypedError(w http.ResponseWriter, err *contracts.Error) {
	WriteFailure(w, err.Kind.HTTPStatus(), string(err.Kind), err.Message)
}

// WriteFailure renders a failure envelope with an explicit status.
func WriteFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}

// WriteBadRequest renders a 400 validation failure.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusBadRequest, string(contracts.KindValidation), message)
}

// WriteUnauthorized renders a 401 failure.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// WriteMethodNotAllowed renders a 405 failure.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteFailure(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
		"the HTTP method is not supported for this endpoint")
}

// WriteTooManyRequests renders a 429 failure with a Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	WriteFailure(w, http.StatusTooManyRequests, "RATE_LIMITED",
		"rate limit exceeded; retry after the specified interval")
}
