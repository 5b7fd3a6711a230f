package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

type memCredentialStore struct {
	key string
}

func (m *memCredentialStore) Save(_ context.Context, key string) error {
	m.key = key
	return nil
}

func (m *memCredentialStore) Load(context.Context) (string, error) {
	if m.key == "" {
		return "", domain.ErrNotFound
	}
	return m.key, nil
}

func (m *memCredentialStore) Clear(context.Context) error {
	m.key = ""
	return nil
}

type fakePinger struct {
	pinged string
	err    error
}

func (f *fakePinger) Ping(_ context.Context, apiKey string) error {
	f.pinged = apiKey
	return f.err
}

type countingPurger struct{ purges int }

func (c *countingPurger) Purge() { c.purges++ }

func TestCredentialLifecycle(t *testing.T) {
	store := &memCredentialStore{}
	cache := &countingPurger{}
	h := NewCredentialHandler(store, &fakePinger{}, cache)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/credential", nil))
	var dto credentialDTO
	decodeData(t, rec, &dto)
	assert.False(t, dto.Configured)

	rec = httptest.NewRecorder()
	h.Put(rec, httptest.NewRequest(http.MethodPut, "/api/v1/credential",
		strings.NewReader(`{"api_key":"`+handlerTestKey+`"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &dto)
	assert.Equal(t, "sk_****cdef", dto.Masked)
	assert.NotContains(t, rec.Body.String(), handlerTestKey)
	assert.Equal(t, handlerTestKey, store.key)
	assert.Equal(t, 1, cache.purges)

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/credential", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.key)
	assert.Equal(t, 2, cache.purges)
}

func TestCredentialPut_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `nope`, http.StatusBadRequest},
		{"missing key", `{}`, http.StatusBadRequest},
		{"short key", `{"api_key":"sk_abc"}`, http.StatusBadRequest},
		{"bad prefix", `{"api_key":"pk_0123456789abcdefghij"}`, http.StatusBadRequest},
		{"unknown field", `{"api_key":"` + handlerTestKey + `","extra":1}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &memCredentialStore{}
			h := NewCredentialHandler(store, &fakePinger{}, &countingPurger{})

			rec := httptest.NewRecorder()
			h.Put(rec, httptest.NewRequest(http.MethodPut, "/api/v1/credential", strings.NewReader(tc.body)))

			assert.Equal(t, tc.want, rec.Code)
			assert.Empty(t, store.key)
		})
	}
}

func TestCredentialTest(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		pinger := &fakePinger{}
		h := NewCredentialHandler(&memCredentialStore{key: handlerTestKey}, pinger, &countingPurger{})

		rec := httptest.NewRecorder()
		h.Test(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credential/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, handlerTestKey, pinger.pinged)
	})

	t.Run("rejected by provider", func(t *testing.T) {
		pinger := &fakePinger{err: &domain.ProviderError{Kind: domain.ErrCredentialRejected, Status: 401}}
		h := NewCredentialHandler(&memCredentialStore{key: handlerTestKey}, pinger, &countingPurger{})

		rec := httptest.NewRecorder()
		h.Test(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credential/test", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("nothing stored", func(t *testing.T) {
		pinger := &fakePinger{}
		h := NewCredentialHandler(&memCredentialStore{}, pinger, &countingPurger{})

		rec := httptest.NewRecorder()
		h.Test(rec, httptest.NewRequest(http.MethodPost, "/api/v1/credential/test", nil))
		assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
		assert.Empty(t, pinger.pinged)
	})
}
