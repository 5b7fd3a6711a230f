package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

type credentialStore interface {
	Save(ctx context.Context, key string) error
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type credentialPinger interface {
	Ping(ctx context.Context, apiKey string) error
}

type cachePurger interface {
	Purge()
}

type CredentialHandler struct {
	store  credentialStore
	pinger credentialPinger
	cache  cachePurger
}

func NewCredentialHandler(store credentialStore, pinger credentialPinger, cache cachePurger) *CredentialHandler {
	return &CredentialHandler{store: store, pinger: pinger, cache: cache}
}

type saveCredentialRequest struct {
	APIKey string `json:"api_key"`
}

func (r saveCredentialRequest) Validate() []FieldError {
	if r.APIKey == "" {
		return []FieldError{{Field: "api_key", Message: "required"}}
	}
	if err := credential.Validate(r.APIKey); err != nil {
		return []FieldError{{Field: "api_key", Message: "must start with sk_ or ak_, have at least 20 characters and only letters, digits, _ or -"}}
	}
	return nil
}

type credentialDTO struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.store.Load(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		RespondSuccess(w, http.StatusOK, credentialDTO{Configured: false})
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("credential load failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, credentialDTO{Configured: true, Masked: credential.Mask(key)})
}

func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req saveCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.store.Save(r.Context(), req.APIKey); err != nil {
		logging.FromContext(r.Context()).Error("credential save failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	h.cache.Purge()

	logging.FromContext(r.Context()).Info("credential updated", "key", credential.Mask(req.APIKey))
	RespondSuccess(w, http.StatusOK, credentialDTO{Configured: true, Masked: credential.Mask(req.APIKey)})
}

func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("credential clear failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	h.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// Test checks the stored key against the provider with a minimal request.
func (h *CredentialHandler) Test(w http.ResponseWriter, r *http.Request) {
	key, err := loadCredential(r.Context(), h.store)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	if err := h.pinger.Ping(r.Context(), key); err != nil {
		logging.FromContext(r.Context()).Warn("credential test failed", "key", credential.Mask(key), "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{"valid": true, "masked": credential.Mask(key)})
}

type credentialLoader interface {
	Load(ctx context.Context) (string, error)
}

func loadCredential(ctx context.Context, store credentialLoader) (string, error) {
	key, err := store.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNoCredential
	}
	return key, err
}
