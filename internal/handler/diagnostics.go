package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/josh-kwaku/backoffice/internal/diagnostics"
	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/format"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

type diagnosticsService interface {
	Scan(ctx context.Context, opts diagnostics.ScanOptions) ([]domain.Diagnostic, error)
	Pending() []domain.Diagnostic
	Apply(ctx context.Context, opts diagnostics.ApplyOptions) (diagnostics.ApplyResult, error)
}

type DiagnosticsHandler struct {
	diagnostics diagnosticsService
	creds       credentialLoader
}

func NewDiagnosticsHandler(svc diagnosticsService, creds credentialLoader) *DiagnosticsHandler {
	return &DiagnosticsHandler{diagnostics: svc, creds: creds}
}

type diagnosticDTO struct {
	ExternalID         string  `json:"external_id"`
	Source             string  `json:"source"`
	Amount             int64   `json:"amount"`
	AmountDisplay      string  `json:"amount_display"`
	CreatedAt          string  `json:"created_at"`
	CurrentStatus      string  `json:"current_status"`
	SuggestedStatus    string  `json:"suggested_status"`
	APIStatus          *string `json:"api_status"`
	Confidence         int     `json:"confidence"`
	IsAnomaly          bool    `json:"is_anomaly"`
	HoursSinceCreation float64 `json:"hours_since_creation"`
	State              string  `json:"state"`
}

func toDiagnosticDTOs(diags []domain.Diagnostic) []diagnosticDTO {
	out := make([]diagnosticDTO, 0, len(diags))
	for _, d := range diags {
		out = append(out, diagnosticDTO{
			ExternalID:         d.ExternalID,
			Source:             string(d.Source),
			Amount:             d.Amount,
			AmountDisplay:      format.Currency(d.Amount),
			CreatedAt:          d.CreatedAt.UTC().Format(time.RFC3339),
			CurrentStatus:      d.CurrentStatus,
			SuggestedStatus:    d.SuggestedStatus,
			APIStatus:          d.APIStatus,
			Confidence:         d.Confidence,
			IsAnomaly:          d.IsAnomaly,
			HoursSinceCreation: d.HoursSinceCreation,
			State:              string(d.State),
		})
	}
	return out
}

type scanRequest struct {
	LiveCheck bool `json:"live_check"`
}

func (h *DiagnosticsHandler) Scan(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req scanRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}
	}

	opts := diagnostics.ScanOptions{LiveCheck: req.LiveCheck}
	if req.LiveCheck {
		key, err := loadCredential(r.Context(), h.creds)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		opts.Credential = key
	}

	diags, err := h.diagnostics.Scan(r.Context(), opts)
	if err != nil && len(diags) > 0 {
		log.Warn("diagnostics scan interrupted", "flagged", len(diags), "error", err)
		RespondSuccess(w, http.StatusMultiStatus, map[string]any{
			"diagnostics": toDiagnosticDTOs(diags),
			"flagged":     len(diags),
			"partial":     true,
			"error":       err.Error(),
		})
		return
	}
	if err != nil {
		log.Warn("diagnostics scan failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]any{
		"diagnostics": toDiagnosticDTOs(diags),
		"flagged":     len(diags),
	})
}

func (h *DiagnosticsHandler) List(w http.ResponseWriter, r *http.Request) {
	diags := h.diagnostics.Pending()
	RespondSuccess(w, http.StatusOK, map[string]any{
		"diagnostics": toDiagnosticDTOs(diags),
		"flagged":     len(diags),
	})
}

type applyRequest struct {
	ExternalIDs   []string `json:"external_ids"`
	MinConfidence int      `json:"min_confidence"`
}

func (r applyRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MinConfidence < 0 || r.MinConfidence > 100 {
		errs = append(errs, FieldError{Field: "min_confidence", Message: "must be between 0 and 100"})
	}
	for _, id := range r.ExternalIDs {
		if id == "" {
			errs = append(errs, FieldError{Field: "external_ids", Message: "must not contain empty ids"})
			break
		}
	}
	return errs
}

type applyResultDTO struct {
	Selected    int             `json:"selected"`
	Applied     int             `json:"applied"`
	Failed      int             `json:"failed"`
	Batches     int             `json:"batches"`
	Diagnostics []diagnosticDTO `json:"diagnostics"`
	Error       string          `json:"error,omitempty"`
}

func (h *DiagnosticsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.diagnostics.Apply(r.Context(), diagnostics.ApplyOptions{
		ExternalIDs:   req.ExternalIDs,
		MinConfidence: req.MinConfidence,
	})
	// Committed batches stay committed, so a late failure still reports them.
	if err != nil && res.Applied == 0 {
		log.Warn("applying corrections failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := applyResultDTO{
		Selected:    res.Selected,
		Applied:     res.Applied,
		Failed:      res.Failed,
		Batches:     res.Batches,
		Diagnostics: toDiagnosticDTOs(res.Diagnostics),
	}
	status := http.StatusOK
	if err != nil {
		log.Warn("applying corrections interrupted", "applied", res.Applied, "failed", res.Failed, "error", err)
		dto.Error = err.Error()
		status = http.StatusMultiStatus
	} else if res.Failed > 0 {
		status = http.StatusMultiStatus
	}
	RespondSuccess(w, status, dto)
}
