package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/josh-kwaku/backoffice/internal/credential"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

const (
	proxyEndpointPrefix = "/core/v5/"
	maxUpstreamBody     = 32 << 20
)

// Localized messages for statuses passed through from the provider.
var upstreamMessages = map[int]string{
	http.StatusBadRequest:          "Requisição inválida",
	http.StatusUnauthorized:        "Chave de API inválida ou expirada",
	http.StatusForbidden:           "Acesso negado para esta chave de API",
	http.StatusNotFound:            "Recurso não encontrado",
	http.StatusUnprocessableEntity: "Dados da requisição rejeitados pelo provedor",
	http.StatusTooManyRequests:     "Limite de requisições excedido, tente novamente em instantes",
}

type ProxyError struct {
	Error     string `json:"error"`
	Details   string `json:"details"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

type proxyRequest struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey"`
}

func (r proxyRequest) Validate() string {
	var problems []string
	switch {
	case !strings.HasPrefix(r.Endpoint, proxyEndpointPrefix):
		problems = append(problems, "endpoint deve começar com "+proxyEndpointPrefix)
	case !staysUnderPrefix(r.Endpoint):
		problems = append(problems, "endpoint não pode sair de "+proxyEndpointPrefix)
	}
	if err := credential.Validate(r.APIKey); err != nil {
		problems = append(problems, "apiKey deve começar com sk_ ou ak_ e ter ao menos 20 caracteres")
	}
	return strings.Join(problems, "; ")
}

// staysUnderPrefix reports whether the endpoint's path, once unescaped and
// cleaned, is unchanged and still below the whitelisted prefix.
func staysUnderPrefix(endpoint string) bool {
	p := endpoint
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	decoded, err := url.PathUnescape(p)
	if err != nil || strings.Contains(decoded, `\`) {
		return false
	}
	cleaned := path.Clean(decoded)
	if cleaned != decoded && cleaned+"/" != decoded {
		return false
	}
	return strings.HasPrefix(cleaned+"/", proxyEndpointPrefix)
}

// ProxyHandler forwards whitelisted GETs to the provider with HTTP Basic
// authentication, so the browser never talks to the provider directly.
type ProxyHandler struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewProxyHandler(baseURL string, timeout time.Duration) *ProxyHandler {
	return &ProxyHandler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req proxyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Requisição inválida", "corpo deve ser JSON {endpoint, apiKey}")
		return
	}
	if problem := req.Validate(); problem != "" {
		h.fail(w, http.StatusBadRequest, "Requisição inválida", problem)
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.baseURL+req.Endpoint, nil)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Requisição inválida", "endpoint inválido")
		return
	}
	upstream.SetBasicAuth(req.APIKey, "")
	upstream.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(upstream)
	if err != nil {
		if isTimeout(err) {
			log.Warn("provider timed out", "endpoint", req.Endpoint, "duration_ms", time.Since(start).Milliseconds())
			h.fail(w, http.StatusRequestTimeout, "Tempo de resposta do provedor esgotado", err.Error())
			return
		}
		log.Error("provider request failed", "endpoint", req.Endpoint, "error", err)
		h.fail(w, http.StatusInternalServerError, "Falha ao contatar o provedor", err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		if isTimeout(err) {
			h.fail(w, http.StatusRequestTimeout, "Tempo de resposta do provedor esgotado", err.Error())
			return
		}
		h.fail(w, http.StatusInternalServerError, "Falha ao ler resposta do provedor", err.Error())
		return
	}

	log.Info("provider responded",
		"endpoint", req.Endpoint,
		"key", credential.Mask(req.APIKey),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(body) {
			h.fail(w, http.StatusBadGateway, "Resposta inválida do provedor", "corpo da resposta não é JSON")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(body); err != nil {
			log.Error("failed to write proxied body", "error", err)
		}
		return
	}

	if msg, ok := upstreamMessages[resp.StatusCode]; ok {
		h.fail(w, resp.StatusCode, msg, upstreamDetails(body))
		return
	}
	if resp.StatusCode >= 500 {
		h.fail(w, http.StatusServiceUnavailable, "Provedor indisponível", upstreamDetails(body))
		return
	}
	h.fail(w, http.StatusBadRequest, "Requisição inválida", upstreamDetails(body))
}

func (h *ProxyHandler) fail(w http.ResponseWriter, status int, message, details string) {
	RespondJSON(w, status, ProxyError{
		Error:     message,
		Details:   details,
		Status:    status,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// ProxyRoutes mounts the proxy with CORS so the dashboard can call it from the
// browser.
func ProxyRoutes(h *ProxyHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/proxy", h.Forward)
	return r
}

// upstreamDetails pulls a human-readable message out of the provider's error
// body, falling back to the raw text.
func upstreamDetails(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		for field, msgs := range parsed.Errors {
			if len(msgs) > 0 {
				return fmt.Sprintf("%s (%s: %s)", parsed.Message, field, msgs[0])
			}
		}
		return parsed.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
