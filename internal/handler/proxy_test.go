package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proxyTestKey = "sk_test_0123456789abcdef"

func newProxyUnderTest(t *testing.T, upstream http.HandlerFunc, timeout time.Duration) (http.Handler, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	h := NewProxyHandler(srv.URL, timeout)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return ProxyRoutes(h, []string{"*"}), &calls
}

func postProxy(h http.Handler, endpoint, key string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"endpoint": endpoint, "apiKey": key})
	req := httptest.NewRequest(http.MethodPost, "/proxy", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProxyError(t *testing.T, rec *httptest.ResponseRecorder) ProxyError {
	t.Helper()
	var pe ProxyError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pe))
	return pe
}

func TestProxy_ValidationRejectsBeforeUpstream(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
	}{
		{"wrong endpoint prefix", "/v4/foo", proxyTestKey},
		{"dot segments escape prefix", "/core/v5/../../x", proxyTestKey},
		{"dot segments into older version", "/core/v5/./../v4/x", proxyTestKey},
		{"encoded dot segments", "/core/v5/%2e%2e/%2e%2e/x", proxyTestKey},
		{"backslash traversal", `/core/v5/..\x`, proxyTestKey},
		{"short key", "/core/v5/orders", "sk_short"},
		{"unknown key prefix", "/core/v5/orders", "pk_test_0123456789abcdef"},
		{"empty body fields", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, calls := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}, time.Second)

			rec := postProxy(h, tc.endpoint, tc.key)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, calls.Load())
			pe := decodeProxyError(t, rec)
			assert.Equal(t, http.StatusBadRequest, pe.Status)
			assert.Equal(t, "2026-03-01T12:00:00Z", pe.Timestamp)
			assert.NotEmpty(t, pe.Details)
		})
	}
}

func TestProxy_ForwardsWithBasicAuth(t *testing.T) {
	h, calls := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, proxyTestKey, user)
		assert.Empty(t, pass)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/core/v5/orders", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"or_1"}],"paging":{"total":1}}`))
	}, time.Second)

	rec := postProxy(h, "/core/v5/orders?page=2&size=10", proxyTestKey)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), calls.Load())
	assert.JSONEq(t, `{"data":[{"id":"or_1"}],"paging":{"total":1}}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProxy_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantError  string
	}{
		{"unauthorized passes through", http.StatusUnauthorized, `{"message":"Authorization has been denied"}`, http.StatusUnauthorized, "Chave de API inválida ou expirada"},
		{"forbidden passes through", http.StatusForbidden, `{"message":"forbidden"}`, http.StatusForbidden, "Acesso negado para esta chave de API"},
		{"not found passes through", http.StatusNotFound, `{"message":"Order not found"}`, http.StatusNotFound, "Recurso não encontrado"},
		{"unprocessable passes through", http.StatusUnprocessableEntity, `{"message":"invalid","errors":{"size":["too big"]}}`, http.StatusUnprocessableEntity, "Dados da requisição rejeitados pelo provedor"},
		{"rate limited passes through", http.StatusTooManyRequests, `slow down`, http.StatusTooManyRequests, "Limite de requisições excedido, tente novamente em instantes"},
		{"server error becomes unavailable", http.StatusInternalServerError, `boom`, http.StatusServiceUnavailable, "Provedor indisponível"},
		{"non json success is bad gateway", http.StatusOK, `<html>maintenance</html>`, http.StatusBadGateway, "Resposta inválida do provedor"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}, time.Second)

			rec := postProxy(h, "/core/v5/orders", proxyTestKey)

			assert.Equal(t, tc.wantStatus, rec.Code)
			pe := decodeProxyError(t, rec)
			assert.Equal(t, tc.wantError, pe.Error)
			assert.Equal(t, tc.wantStatus, pe.Status)
		})
	}
}

func TestProxy_UnprocessableDetails(t *testing.T) {
	h, _ := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"The request is invalid.","errors":{"size":["must be at most 100"]}}`))
	}, time.Second)

	rec := postProxy(h, "/core/v5/orders?size=1000", proxyTestKey)
	pe := decodeProxyError(t, rec)
	assert.Equal(t, "The request is invalid. (size: must be at most 100)", pe.Details)
}

func TestProxy_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	h, _ := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	rec := postProxy(h, "/core/v5/orders", proxyTestKey)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, http.StatusRequestTimeout, decodeProxyError(t, rec).Status)
}

func TestProxy_TransportFailure(t *testing.T) {
	h := NewProxyHandler("http://127.0.0.1:1", time.Second)
	rec := postProxy(ProxyRoutes(h, []string{"*"}), "/core/v5/orders", proxyTestKey)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Falha ao contatar o provedor", decodeProxyError(t, rec).Error)
}

func TestProxy_Preflight(t *testing.T) {
	h, calls := newProxyUnderTest(t, func(w http.ResponseWriter, r *http.Request) {}, time.Second)

	req := httptest.NewRequest(http.MethodOptions, "/proxy", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, calls.Load())
}
