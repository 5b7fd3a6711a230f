package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps a sentinel from the domain taxonomy to its HTTP
// form. Provider failures carry the proxy's details message along.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrNoCredential):
		appErr = ErrNoCredential
	case errors.Is(err, domain.ErrCredentialInvalid):
		appErr = ErrCredentialInvalid
	case errors.Is(err, domain.ErrCredentialRejected):
		appErr = ErrCredentialRejected
	case errors.Is(err, domain.ErrRequestMalformed):
		appErr = ErrRequestMalformed
	case errors.Is(err, domain.ErrRateLimited):
		appErr = ErrRateLimited
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		appErr = ErrUpstreamDown
	case errors.Is(err, domain.ErrResponseUnparsable):
		appErr = ErrUpstreamGarbled
	case errors.Is(err, domain.ErrRefreshInProgress):
		appErr = ErrRefreshInProgress
	case errors.Is(err, domain.ErrIntegrityViolation):
		appErr = ErrIntegrity
	case errors.Is(err, domain.ErrInvalidTransition):
		appErr = ErrInvalidTransition
	case errors.Is(err, domain.ErrConflict):
		appErr = ErrConflict
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = ErrRequestCanceled
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	var details any
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Details != "" {
		details = pe.Details
	}
	RespondAppError(w, appErr, details)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
