package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newtron-network/netedit/pkg/util"
)

// ErrorCode is the machine-readable kind of an API error.
type ErrorCode string

const (
	ErrCodeInvalidRequest    ErrorCode = "invalid_request"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeValidationFailed  ErrorCode = "validation_failed"
	ErrCodeMutationRejected  ErrorCode = "mutation_rejected"
	ErrCodePrecondition      ErrorCode = "precondition_failed"
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	ErrCodePermissionDenied  ErrorCode = "permission_denied"
	ErrCodeInternalError     ErrorCode = "internal_error"
)

// APIError is the body of every error response.
type APIError struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse wraps an APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// DataResponse wraps successful responses with a "data" field.
type DataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Warnf("Writing response: %v", err)
	}
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: v})
}

func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: APIError{Code: ErrCodeInvalidRequest, Message: message}})
}

// writeError maps err onto a status code by its sentinel.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := APIError{Code: code, Message: err.Error()}
	if status == http.StatusUnprocessableEntity {
		body.Fields = util.FieldMessages(err)
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}

func classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, util.ErrValidationFailed):
		return http.StatusUnprocessableEntity, ErrCodeValidationFailed
	case errors.Is(err, util.ErrMutationRejected):
		return http.StatusUnprocessableEntity, ErrCodeMutationRejected
	case errors.Is(err, util.ErrPermissionDenied):
		return http.StatusForbidden, ErrCodePermissionDenied
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, util.ErrPreconditionFailed):
		return http.StatusConflict, ErrCodePrecondition
	case errors.Is(err, util.ErrInvalidTransition):
		return http.StatusConflict, ErrCodeInvalidTransition
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}
