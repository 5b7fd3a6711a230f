// Command mock-provider serves a small deterministic core/v5 feed so the proxy
// and the refresh flow can run without a real provider account.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/middleware"
)

const recordCount = 42

func main() {
	logger := logging.Init("mock-provider", "info", os.Getenv("APP_ENV"))

	addr := ":8081"
	if port := os.Getenv("MOCK_PROVIDER_PORT"); port != "" {
		addr = ":" + port
	}

	records := newFeed(time.Now().UTC(), recordCount)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/core/v5", func(r chi.Router) {
		r.Use(requireSecretKey)
		r.Get("/recipients", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, page(r, []map[string]any{{"id": "rp_mock", "name": "Loja Exemplo"}}))
		})
		r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, page(r, records.orders))
		})
		r.Get("/orders/{id}", lookup(records.orders))
		r.Get("/payables", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, page(r, records.payables))
		})
		r.Get("/payables/{id}", lookup(records.payables))
		r.Get("/charges", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, page(r, records.charges))
		})
		r.Get("/charges/{id}", lookup(records.charges))
	})

	logger.Info("mock provider started", "addr", addr, "records", recordCount)
	if err := http.ListenAndServe(addr, middleware.Logging(logger)(r)); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func requireSecretKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || !strings.HasPrefix(user, "sk_") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authorization has been denied for this request."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type feed struct {
	orders   []map[string]any
	payables []map[string]any
	charges  []map[string]any
}

var (
	methods  = []string{"credit_card", "pix", "boleto"}
	statuses = []string{"paid", "paid", "pending", "processing", "failed"}
	brands   = []string{"Visa", "Mastercard", "Elo"}
)

func newFeed(now time.Time, n int) *feed {
	f := &feed{}
	for i := 0; i < n; i++ {
		created := now.Add(-time.Duration(i*7) * time.Hour)
		method := methods[i%len(methods)]
		status := statuses[i%len(statuses)]
		amount := 1000 + i*735

		tx := map[string]any{
			"id":                 fmt.Sprintf("tran_%04d", i),
			"gateway_id":         strconv.Itoa(900000 + i),
			"status":             status,
			"acquirer_name":      "simulator",
			"acquirer_tid":       strconv.Itoa(700000 + i),
			"acquirer_nsu":       strconv.Itoa(500000 + i),
			"acquirer_auth_code": fmt.Sprintf("%06d", 123000+i),
		}
		switch method {
		case "credit_card":
			tx["installments"] = 1 + i%6
			tx["card"] = map[string]any{"brand": brands[i%len(brands)], "last_four_digits": fmt.Sprintf("%04d", 1000+i)}
			tx["antifraud_response"] = map[string]any{"score": float64(i%10) / 10}
		case "boleto":
			tx["line"] = fmt.Sprintf("34191.79001 01043.510047 91020.150008 %d %014d", i%10, amount)
			tx["barcode"] = fmt.Sprintf("3419%040d", amount)
			tx["nosso_numero"] = strconv.Itoa(10000 + i)
			tx["due_at"] = created.Add(72 * time.Hour).Format(time.RFC3339)
		case "pix":
			tx["qr_code"] = fmt.Sprintf("00020101021226mock%04d", i)
			tx["qr_code_url"] = fmt.Sprintf("https://mock.local/pix/%04d.png", i)
			tx["expires_at"] = created.Add(time.Hour).Format(time.RFC3339)
		}

		charge := map[string]any{
			"id":               fmt.Sprintf("ch_%04d", i),
			"code":             fmt.Sprintf("C%05d", i),
			"gateway_id":       strconv.Itoa(900000 + i),
			"amount":           amount,
			"status":           status,
			"payment_method":   method,
			"created_at":       created.Format(time.RFC3339),
			"customer":         map[string]any{"name": fmt.Sprintf("Cliente %d", i), "email": fmt.Sprintf("cliente%d@example.com", i)},
			"last_transaction": tx,
		}
		if status == "paid" {
			charge["paid_amount"] = amount
			charge["paid_at"] = created.Add(time.Minute).Format(time.RFC3339)
		}
		f.charges = append(f.charges, charge)

		f.orders = append(f.orders, map[string]any{
			"id":         fmt.Sprintf("or_%04d", i),
			"code":       fmt.Sprintf("P%05d", i),
			"amount":     amount,
			"status":     status,
			"created_at": created.Format(time.RFC3339),
			"customer":   charge["customer"],
			"items":      []map[string]any{{"description": fmt.Sprintf("Produto %d", i)}},
			"charges":    []map[string]any{charge},
		})

		if status == "paid" {
			f.payables = append(f.payables, map[string]any{
				"id":             900000 + i,
				"type":           "credit",
				"status":         "waiting_funds",
				"amount":         amount,
				"fee":            amount / 50,
				"installment":    1,
				"gateway_id":     900000 + i,
				"charge_id":      charge["id"],
				"payment_method": method,
				"created_at":     created.Add(time.Minute).Format(time.RFC3339),
				"payment_date":   created.AddDate(0, 0, 30).Format(time.RFC3339),
			})
		}
	}
	return f
}

func lookup(records []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		for _, rec := range records {
			if fmt.Sprint(rec["id"]) == id {
				writeJSON(w, http.StatusOK, rec)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func page(r *http.Request, records []map[string]any) map[string]any {
	p, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if p < 1 {
		p = 1
	}
	if size < 1 {
		size = 10
	}

	start := (p - 1) * size
	if start > len(records) {
		start = len(records)
	}
	end := min(start+size, len(records))

	return map[string]any{
		"data":   records[start:end],
		"paging": map[string]any{"total": len(records)},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
