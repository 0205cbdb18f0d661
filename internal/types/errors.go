package types

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// ErrorCode names a failure class. The prefix decides the HTTP status.
type ErrorCode string

const (
	ErrCodeValidationInvalidJSON   ErrorCode = "validation_invalid_json"
	ErrCodeValidationInvalidDate   ErrorCode = "validation_invalid_date"
	ErrCodeValidationInvalidKind   ErrorCode = "validation_invalid_session_kind"
	ErrCodeValidationInvalidAgent  ErrorCode = "validation_invalid_agent"
	ErrCodeValidationNoAgents      ErrorCode = "validation_no_active_agents"
	ErrCodeValidationInvalidFields ErrorCode = "validation_invalid_fields"
	ErrCodeValidationNotChat       ErrorCode = "validation_session_not_conversation"

	ErrCodeRateLimit ErrorCode = "rate_limit_exceeded"

	ErrCodeNotFoundObservation ErrorCode = "not_found_observation"
	ErrCodeNotFoundSession     ErrorCode = "not_found_session"

	ErrCodeConflictSessionDone     ErrorCode = "conflict_session_finished"
	ErrCodeConflictSessionNotReady ErrorCode = "conflict_session_not_ready"
	ErrCodeConflictSessionCapacity ErrorCode = "conflict_session_capacity"

	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

var statusByPrefix = []struct {
	prefix string
	status int
}{
	{"validation_", http.StatusBadRequest},
	{"not_found_", http.StatusNotFound},
	{"conflict_", http.StatusConflict},
	{"internal_", http.StatusInternalServerError},
}

// HTTPStatus maps c to a response status. Unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if c == ErrCodeRateLimit {
		return http.StatusTooManyRequests
	}
	for _, m := range statusByPrefix {
		if strings.HasPrefix(string(c), m.prefix) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// AppError is what handlers return and core.Error renders. Err stays out of
// the response body; Message and Details are shown to the client.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e whose details are e's merged with extra.
// Keys in extra win.
func (e *AppError) WithDetails(extra map[string]any) *AppError {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+len(extra))
	maps.Copy(out.Details, e.Details)
	maps.Copy(out.Details, extra)
	return &out
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}
