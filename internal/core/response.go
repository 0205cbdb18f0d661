package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"verdant/internal/types"
)

// maxRequestBodySize bounds DecodeJSON when BodyLimitMiddleware is not in
// the chain.
const maxRequestBodySize = 1 << 20

// APIResponse is the envelope for successful /v1 responses.
type APIResponse struct {
	Data any            `json:"data,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// APIErrorResponse is the envelope for error responses.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

func errorEnvelope(r *http.Request, code types.ErrorCode, msg string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      string(code),
		Message:   msg,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// JSON writes data with status. If data cannot be marshalled the client gets
// a 500 envelope instead.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorEnvelope(r, types.ErrCodeInternalUnexpected, "failed to marshal response", nil))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Data wraps data in {"data": ...}.
func Data(w http.ResponseWriter, r *http.Request, status int, data any) {
	JSON(w, r, status, APIResponse{Data: data})
}

// Error renders err. Only an *types.AppError in the chain reaches the client
// verbatim; any other error becomes a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError,
			errorEnvelope(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
		return
	}
	JSON(w, r, appErr.HTTPStatus(), errorEnvelope(r, appErr.Code, appErr.Message, appErr.Details))
}

// DecodeJSON reads a single JSON value into dst and rejects unknown fields.
// Every failure is a validation_invalid_json AppError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON,
			"request body must contain a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) *types.AppError {
	var (
		tooLarge *http.MaxBytesError
		syntax   *json.SyntaxError
		typeErr  *json.UnmarshalTypeError
	)
	msg := "invalid JSON in request body"
	var details map[string]any

	switch {
	case errors.As(err, &tooLarge):
		msg = "request body is too large"
	case errors.As(err, &syntax):
		msg = "malformed JSON in request body"
	case errors.As(err, &typeErr):
		msg = "invalid value for field"
		details = map[string]any{"field": typeErr.Field, "expected": typeErr.Type.String()}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		msg = "unknown field in request body: " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	case errors.Is(err, io.EOF):
		msg = "request body must not be empty"
	}
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidJSON, msg, err, details)
}
