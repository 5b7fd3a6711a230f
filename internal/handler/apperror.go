package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrConflict         = &AppError{http.StatusConflict, "CONFLICT", "Resource conflicts with an existing record"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrNoCredential       = &AppError{http.StatusPreconditionRequired, "CREDENTIAL_NOT_CONFIGURED", "Provider API key is not configured"}
	ErrCredentialInvalid  = &AppError{http.StatusBadRequest, "CREDENTIAL_INVALID", "API key must start with sk_ or ak_ and have at least 20 characters"}
	ErrCredentialRejected = &AppError{http.StatusUnauthorized, "CREDENTIAL_REJECTED", "Provider rejected the API key"}
	ErrRequestMalformed   = &AppError{http.StatusUnprocessableEntity, "REQUEST_MALFORMED", "Provider rejected the request"}
	ErrRateLimited        = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Provider rate limit reached, try again later"}
	ErrUpstreamDown       = &AppError{http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Provider is unavailable"}
	ErrUpstreamGarbled    = &AppError{http.StatusBadGateway, "UPSTREAM_UNPARSABLE", "Provider returned an unreadable response"}
	ErrRefreshInProgress  = &AppError{http.StatusConflict, "REFRESH_IN_PROGRESS", "A refresh is already running"}
	ErrIntegrity          = &AppError{http.StatusConflict, "INTEGRITY_VIOLATION", "Collected data failed the integrity check"}
	ErrInvalidTransition  = &AppError{http.StatusConflict, "INVALID_TRANSITION", "Diagnostic cannot move to the requested state"}
	ErrRequestCanceled    = &AppError{http.StatusRequestTimeout, "REQUEST_CANCELED", "Request was canceled or timed out"}

	ErrIdempotencyConflict = &AppError{http.StatusUnprocessableEntity, "IDEMPOTENCY_CONFLICT", "Idempotency-Key was already used for a different request"}
)
