package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/filter"
	"github.com/josh-kwaku/backoffice/internal/format"
	"github.com/josh-kwaku/backoffice/internal/logging"
	"github.com/josh-kwaku/backoffice/internal/merge"
	"github.com/josh-kwaku/backoffice/internal/service"
)

type movementsService interface {
	Refresh(ctx context.Context, apiKey string) (service.RefreshSummary, error)
	Operations(ctx context.Context, opts domain.FilterOptions) (filter.Result, error)
	Indicators(ctx context.Context, opts domain.FilterOptions) (domain.FinancialIndicators, error)
	Integrity(ctx context.Context) (merge.IntegrityReport, error)
	Progress() service.Progress
}

type MovementsHandler struct {
	movements movementsService
	creds     credentialLoader
	loc       *time.Location
}

func NewMovementsHandler(movements movementsService, creds credentialLoader, loc *time.Location) *MovementsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &MovementsHandler{movements: movements, creds: creds, loc: loc}
}

type operationDTO struct {
	ID                string   `json:"id"`
	Source            string   `json:"source"`
	Type              string   `json:"type"`
	Status            string   `json:"status"`
	Amount            int64    `json:"amount"`
	AmountDisplay     string   `json:"amount_display"`
	Fee               *int64   `json:"fee,omitempty"`
	CreatedAt         string   `json:"created_at"`
	CreatedAtDisplay  string   `json:"created_at_display"`
	Description       string   `json:"description"`
	PaymentMethod     string   `json:"payment_method"`
	Installments      *int     `json:"installments,omitempty"`
	AcquirerName      string   `json:"acquirer_name,omitempty"`
	AuthorizationCode string   `json:"authorization_code,omitempty"`
	TID               string   `json:"tid,omitempty"`
	NSU               string   `json:"nsu,omitempty"`
	CardBrand         string   `json:"card_brand,omitempty"`
	CardLastFour      string   `json:"card_last_four,omitempty"`
	AntifraudScore    *float64 `json:"antifraud_score,omitempty"`
	RealCode          string   `json:"real_code"`
}

func (h *MovementsHandler) toOperationDTO(op domain.BalanceOperation) operationDTO {
	return operationDTO{
		ID:                op.ID,
		Source:            string(op.Source),
		Type:              string(op.Type),
		Status:            op.Status,
		Amount:            op.Amount,
		AmountDisplay:     format.Currency(op.Amount),
		Fee:               op.Fee,
		CreatedAt:         op.CreatedAt.UTC().Format(time.RFC3339),
		CreatedAtDisplay:  format.DateTime(op.CreatedAt, h.loc),
		Description:       op.Description,
		PaymentMethod:     op.PaymentMethod,
		Installments:      op.Installments,
		AcquirerName:      op.AcquirerName,
		AuthorizationCode: op.AuthorizationCode,
		TID:               op.TID,
		NSU:               op.NSU,
		CardBrand:         op.CardBrand,
		CardLastFour:      op.CardLastFour,
		AntifraudScore:    op.AntifraudScore,
		RealCode:          op.RealCode,
	}
}

type boletoDTO struct {
	URL         string  `json:"url,omitempty"`
	Line        string  `json:"line,omitempty"`
	Barcode     string  `json:"barcode,omitempty"`
	NossoNumero string  `json:"nosso_numero,omitempty"`
	DueAt       *string `json:"due_at,omitempty"`
}

type pixDTO struct {
	QRCode    string  `json:"qr_code,omitempty"`
	QRCodeURL string  `json:"qr_code_url,omitempty"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

type transactionDTO struct {
	ID            string     `json:"id"`
	RealCode      string     `json:"real_code"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Amount        int64      `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	PaidAmount    *int64     `json:"paid_amount,omitempty"`
	Installments  *int       `json:"installments,omitempty"`
	AcquirerName  string     `json:"acquirer_name,omitempty"`
	CardBrand     string     `json:"card_brand,omitempty"`
	CardLastFour  string     `json:"card_last_four,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Description   string     `json:"description"`
	CreatedAt     string     `json:"created_at"`
	PaidAt        *string    `json:"paid_at,omitempty"`
	Boleto        *boletoDTO `json:"boleto,omitempty"`
	Pix           *pixDTO    `json:"pix,omitempty"`
}

func toTransactionDTO(tx domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:            tx.ID,
		RealCode:      tx.RealCode,
		Status:        tx.Status,
		PaymentMethod: tx.PaymentMethod,
		Amount:        tx.Amount,
		AmountDisplay: format.Currency(tx.Amount),
		PaidAmount:    tx.PaidAmount,
		Installments:  tx.Installments,
		AcquirerName:  tx.AcquirerName,
		CardBrand:     tx.CardBrand,
		CardLastFour:  tx.CardLastFour,
		CustomerName:  tx.CustomerName,
		CustomerEmail: tx.CustomerEmail,
		Description:   tx.Description,
		CreatedAt:     tx.CreatedAt.UTC().Format(time.RFC3339),
		PaidAt:        rfc3339(tx.PaidAt),
	}
	if b := tx.Boleto; b != nil {
		dto.Boleto = &boletoDTO{URL: b.URL, Line: b.Line, Barcode: b.Barcode, NossoNumero: b.NossoNumero, DueAt: rfc3339(b.DueAt)}
	}
	if p := tx.Pix; p != nil {
		dto.Pix = &pixDTO{QRCode: p.QRCode, QRCodeURL: p.QRCodeURL, ExpiresAt: rfc3339(p.ExpiresAt)}
	}
	return dto
}

func rfc3339(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

type feedSummaryDTO struct {
	Records int    `json:"records"`
	Pages   int    `json:"pages"`
	Skipped int    `json:"skipped"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type refreshDTO struct {
	Feeds        map[string]feedSummaryDTO `json:"feeds"`
	Operations   int                       `json:"operations"`
	Transactions int                       `json:"transactions"`
	Persisted    int                       `json:"persisted"`
	Integrity    integrityDTO              `json:"integrity"`
	DurationMS   int64                     `json:"duration_ms"`
}

type conflictDTO struct {
	ID      string  `json:"id"`
	Amounts []int64 `json:"amounts"`
}

type integrityDTO struct {
	OK              bool          `json:"ok"`
	Checked         int           `json:"checked"`
	DuplicateKeys   []string      `json:"duplicate_keys"`
	MissingIdentity []int         `json:"missing_identity"`
	Conflicts       []conflictDTO `json:"conflicts"`
}

func toIntegrityDTO(r merge.IntegrityReport) integrityDTO {
	dto := integrityDTO{
		OK:              r.OK(),
		Checked:         r.Checked,
		DuplicateKeys:   append([]string{}, r.DuplicateKeys...),
		MissingIdentity: append([]int{}, r.MissingIdentity...),
		Conflicts:       make([]conflictDTO, 0, len(r.Conflicts)),
	}
	for _, c := range r.Conflicts {
		dto.Conflicts = append(dto.Conflicts, conflictDTO{ID: c.ID, Amounts: c.Amounts})
	}
	return dto
}

type methodShareDTO struct {
	Revenue    int64   `json:"revenue"`
	Display    string  `json:"revenue_display"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

type indicatorsDTO struct {
	TotalRevenue         int64                     `json:"total_revenue"`
	TotalRevenueDisplay  string                    `json:"total_revenue_display"`
	TotalFees            int64                     `json:"total_fees"`
	NetRevenue           int64                     `json:"net_revenue"`
	NetRevenueDisplay    string                    `json:"net_revenue_display"`
	OperationCount       int                       `json:"operation_count"`
	TransactionCount     int                       `json:"transaction_count"`
	AverageTicket        int64                     `json:"average_ticket"`
	ApprovalRate         float64                   `json:"approval_rate"`
	RefundRate           float64                   `json:"refund_rate"`
	CreditCardPercentage float64                   `json:"credit_card_percentage"`
	DebitCardPercentage  float64                   `json:"debit_card_percentage"`
	PixPercentage        float64                   `json:"pix_percentage"`
	BoletoPercentage     float64                   `json:"boleto_percentage"`
	ByMethod             map[string]methodShareDTO `json:"by_method"`
	TodayRevenue         int64                     `json:"today_revenue"`
	MonthRevenue         int64                     `json:"month_revenue"`
	PendingAmount        int64                     `json:"pending_amount"`
	AvailableAmount      int64                     `json:"available_amount"`
}

func toIndicatorsDTO(fi domain.FinancialIndicators) indicatorsDTO {
	dto := indicatorsDTO{
		TotalRevenue:         fi.TotalRevenue,
		TotalRevenueDisplay:  format.Currency(fi.TotalRevenue),
		TotalFees:            fi.TotalFees,
		NetRevenue:           fi.NetRevenue,
		NetRevenueDisplay:    format.Currency(fi.NetRevenue),
		OperationCount:       fi.OperationCount,
		TransactionCount:     fi.TransactionCount,
		AverageTicket:        fi.AverageTicket,
		ApprovalRate:         fi.ApprovalRate,
		RefundRate:           fi.RefundRate,
		CreditCardPercentage: fi.CreditCardPercentage,
		DebitCardPercentage:  fi.DebitCardPercentage,
		PixPercentage:        fi.PixPercentage,
		BoletoPercentage:     fi.BoletoPercentage,
		ByMethod:             make(map[string]methodShareDTO, len(fi.ByMethod)),
		TodayRevenue:         fi.TodayRevenue,
		MonthRevenue:         fi.MonthRevenue,
		PendingAmount:        fi.PendingAmount,
		AvailableAmount:      fi.AvailableAmount,
	}
	for m, share := range fi.ByMethod {
		dto.ByMethod[m] = methodShareDTO{
			Revenue:    share.Revenue,
			Display:    format.Currency(share.Revenue),
			Percentage: share.Percentage,
			Count:      share.Count,
		}
	}
	return dto
}

func (h *MovementsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	key, err := loadCredential(r.Context(), h.creds)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	summary, err := h.movements.Refresh(r.Context(), key)
	if err != nil {
		log.Warn("movements refresh failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dto := refreshDTO{
		Feeds:        make(map[string]feedSummaryDTO, len(summary.Feeds)),
		Operations:   summary.Operations,
		Transactions: summary.Transactions,
		Persisted:    summary.Persisted,
		Integrity:    toIntegrityDTO(summary.Integrity),
		DurationMS:   summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	}
	for feed, fs := range summary.Feeds {
		dto.Feeds[feed] = feedSummaryDTO(fs)
	}
	RespondSuccess(w, http.StatusOK, dto)
}

func (h *MovementsHandler) filters(w http.ResponseWriter, r *http.Request) (domain.FilterOptions, bool) {
	opts, qerrs := filter.FromQuery(r.URL.Query(), h.loc)
	if len(qerrs) == 0 {
		return opts, true
	}
	fields := make([]FieldError, 0, len(qerrs))
	for _, qe := range qerrs {
		fields = append(fields, FieldError{Field: qe.Field, Message: qe.Message})
	}
	RespondValidationError(w, fields)
	return domain.FilterOptions{}, false
}

func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.filters(w, r)
	if !ok {
		return
	}

	res, err := h.movements.Operations(r.Context(), opts)
	if err != nil {
		logging.FromContext(r.Context()).Error("listing movements failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	ops := make([]operationDTO, 0, len(res.Operations))
	for _, op := range res.Operations {
		ops = append(ops, h.toOperationDTO(op))
	}
	txs := make([]transactionDTO, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		txs = append(txs, toTransactionDTO(tx))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"operations":   ops,
		"transactions": txs,
		"total":        len(ops),
	})
}

func (h *MovementsHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.filters(w, r)
	if !ok {
		return
	}

	fi, err := h.movements.Indicators(r.Context(), opts)
	if err != nil {
		logging.FromContext(r.Context()).Error("indicator calculation failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toIndicatorsDTO(fi))
}

func (h *MovementsHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.movements.Integrity(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toIntegrityDTO(report))
}

func (h *MovementsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, h.movements.Progress())
}
