package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrNoCredential      = errors.New("provider credential not configured")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict")

	ErrCredentialInvalid   = errors.New("credential invalid")
	ErrCredentialRejected  = errors.New("credential rejected by provider")
	ErrRequestMalformed    = errors.New("request malformed")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrResponseUnparsable  = errors.New("response unparsable")
	ErrIntegrityViolation  = errors.New("integrity violation")
)

// ProviderError carries the HTTP status and the proxy's details message for a
// failed provider call. Kind is one of the sentinels above.
type ProviderError struct {
	Kind    error
	Status  int
	Details string
}

func (e *ProviderError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Details)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamUnavailable)
}
