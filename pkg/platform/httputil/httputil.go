// Package httputil writes JSON responses and maps errors onto HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"accai/pkg/platform/sentinel"
)

// Error is an HTTP-facing error with an explicit status and code.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

// BadRequest builds a 400 error.
func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "bad_request", Description: description}
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status and writes the error envelope.
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *Error
	switch {
	case errors.As(err, &httpErr):
	case errors.Is(err, sentinel.ErrNotFound):
		httpErr = &Error{Status: http.StatusNotFound, Code: "not_found", Description: "resource not found"}
	case errors.Is(err, sentinel.ErrInvalidInput):
		httpErr = BadRequest(err.Error())
	case errors.Is(err, sentinel.ErrTimeout):
		httpErr = &Error{Status: http.StatusGatewayTimeout, Code: "timeout"}
	case errors.Is(err, sentinel.ErrUnavailable):
		httpErr = &Error{Status: http.StatusServiceUnavailable, Code: "unavailable"}
	default:
		httpErr = &Error{Status: http.StatusInternalServerError, Code: "internal_error"}
	}
	resp := errorResponse{Error: httpErr.Code}
	if httpErr.Status < http.StatusInternalServerError {
		resp.ErrorDescription = httpErr.Description
	}
	WriteJSON(w, httpErr.Status, resp)
}
