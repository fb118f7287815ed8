package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	cause error
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// newAPIError maps an error to its HTTP form. Configuration and data quality
// problems are the operator's to fix (422); unreadable uploads are 400.
func newAPIError(err error) *APIError {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			ErrorCode:  "INTERNAL",
			Message:    "internal error",
			cause:      err,
		}
	}
	status := http.StatusUnprocessableEntity
	if appErr.Type == apperrors.ErrTypeParsing {
		status = http.StatusBadRequest
	}
	e := &APIError{
		StatusCode: status,
		ErrorCode:  string(appErr.Type),
		Message:    err.Error(),
		cause:      err,
	}
	if len(appErr.Context) > 0 {
		e.Details = appErr.Context
	}
	return e
}

func badRequest(message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_REQUEST", Message: message}
}
