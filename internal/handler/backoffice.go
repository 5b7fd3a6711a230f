package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/format"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

const dayLayout = "2006-01-02"

type recordStore[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// recordRequest is the JSON body for create and update. applyTo copies the
// validated fields onto the entity.
type recordRequest[T any] interface {
	Validate() []FieldError
	applyTo(v *T)
}

// RecordHandler serves list/get/create/update/delete for one of the
// back-office tables.
type RecordHandler[T any, R recordRequest[T]] struct {
	name  string
	store recordStore[T]
	setID func(v *T, id uuid.UUID)
	toDTO func(v T) any
}

func (h *RecordHandler[T, R]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list failed", "resource", h.name, "error", err)
		RespondDomainError(w, err)
		return
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, h.toDTO(it))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *RecordHandler[T, R]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	v, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, h.toDTO(*v))
}

func (h *RecordHandler[T, R]) Create(w http.ResponseWriter, r *http.Request) {
	var req R
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var v T
	id := uuid.New()
	h.setID(&v, id)
	req.applyTo(&v)

	if err := h.store.Create(r.Context(), &v); err != nil {
		logging.FromContext(r.Context()).Warn("create failed", "resource", h.name, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/%s/%s", h.name, id))
	RespondSuccess(w, http.StatusCreated, h.toDTO(v))
}

func (h *RecordHandler[T, R]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req R
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	v, err := h.store.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	req.applyTo(v)

	if err := h.store.Update(r.Context(), v); err != nil {
		logging.FromContext(r.Context()).Warn("update failed", "resource", h.name, "id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, h.toDTO(*v))
}

func (h *RecordHandler[T, R]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		RespondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the five operations under the resource's path.
func (h *RecordHandler[T, R]) Routes(r chi.Router) {
	r.Route("/"+h.name, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Accounts payable

type accountPayableRequest struct {
	Description string     `json:"description"`
	Supplier    string     `json:"supplier"`
	Category    string     `json:"category"`
	Amount      int64      `json:"amount"`
	DueDate     string     `json:"due_date"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at"`
}

func (r accountPayableRequest) Validate() []FieldError {
	var errs []FieldError
	errs = required(errs, "description", r.Description)
	errs = required(errs, "supplier", r.Supplier)
	errs = nonNegative(errs, "amount", r.Amount)
	errs = day(errs, "due_date", r.DueDate)
	if r.Status != "" && !domain.PayableStatus(r.Status).IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be pending, paid, overdue or cancelled"})
	}
	return errs
}

func (r accountPayableRequest) applyTo(a *domain.AccountPayable) {
	a.Description = strings.TrimSpace(r.Description)
	a.Supplier = strings.TrimSpace(r.Supplier)
	a.Category = strings.TrimSpace(r.Category)
	a.Amount = r.Amount
	a.DueDate, _ = time.Parse(dayLayout, r.DueDate)
	a.Status = domain.PayableStatus(orDefault(r.Status, string(domain.PayableStatusPending)))
	a.PaidAt = r.PaidAt
}

type accountPayableDTO struct {
	ID            uuid.UUID  `json:"id"`
	Description   string     `json:"description"`
	Supplier      string     `json:"supplier"`
	Category      string     `json:"category"`
	Amount        int64      `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	DueDate       string     `json:"due_date"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewAccountPayableHandler(store recordStore[domain.AccountPayable]) *RecordHandler[domain.AccountPayable, accountPayableRequest] {
	return &RecordHandler[domain.AccountPayable, accountPayableRequest]{
		name:  "accounts-payable",
		store: store,
		setID: func(a *domain.AccountPayable, id uuid.UUID) { a.ID = id },
		toDTO: func(a domain.AccountPayable) any {
			return accountPayableDTO{
				ID:            a.ID,
				Description:   a.Description,
				Supplier:      a.Supplier,
				Category:      a.Category,
				Amount:        a.Amount,
				AmountDisplay: format.Currency(a.Amount),
				DueDate:       a.DueDate.Format(dayLayout),
				Status:        string(a.Status),
				PaidAt:        a.PaidAt,
				CreatedAt:     a.CreatedAt,
				UpdatedAt:     a.UpdatedAt,
			}
		},
	}
}

// CLT employees

type employeeRequest struct {
	Name          string `json:"name"`
	CPF           string `json:"cpf"`
	Role          string `json:"role"`
	Salary        int64  `json:"salary"`
	AdmissionDate string `json:"admission_date"`
	PaymentDay    int    `json:"payment_day"`
	Status        string `json:"status"`
}

func (r employeeRequest) Validate() []FieldError {
	var errs []FieldError
	errs = required(errs, "name", r.Name)
	if !ValidCPF(r.CPF) {
		errs = append(errs, FieldError{Field: "cpf", Message: "must be a valid CPF"})
	}
	errs = nonNegative(errs, "salary", r.Salary)
	errs = day(errs, "admission_date", r.AdmissionDate)
	errs = paymentDay(errs, r.PaymentDay)
	errs = employeeStatus(errs, r.Status)
	return errs
}

func (r employeeRequest) applyTo(e *domain.CltEmployee) {
	e.Name = strings.TrimSpace(r.Name)
	e.CPF = digitsOnly(r.CPF)
	e.Role = strings.TrimSpace(r.Role)
	e.Salary = r.Salary
	e.AdmissionDate, _ = time.Parse(dayLayout, r.AdmissionDate)
	e.PaymentDay = r.PaymentDay
	e.Status = domain.EmployeeStatus(orDefault(r.Status, string(domain.EmployeeStatusActive)))
}

type employeeDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CPF           string    `json:"cpf"`
	Role          string    `json:"role"`
	Salary        int64     `json:"salary"`
	SalaryDisplay string    `json:"salary_display"`
	AdmissionDate string    `json:"admission_date"`
	PaymentDay    int       `json:"payment_day"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewEmployeeHandler(store recordStore[domain.CltEmployee]) *RecordHandler[domain.CltEmployee, employeeRequest] {
	return &RecordHandler[domain.CltEmployee, employeeRequest]{
		name:  "employees",
		store: store,
		setID: func(e *domain.CltEmployee, id uuid.UUID) { e.ID = id },
		toDTO: func(e domain.CltEmployee) any {
			return employeeDTO{
				ID:            e.ID,
				Name:          e.Name,
				CPF:           e.CPF,
				Role:          e.Role,
				Salary:        e.Salary,
				SalaryDisplay: format.Currency(e.Salary),
				AdmissionDate: e.AdmissionDate.Format(dayLayout),
				PaymentDay:    e.PaymentDay,
				Status:        string(e.Status),
				CreatedAt:     e.CreatedAt,
				UpdatedAt:     e.UpdatedAt,
			}
		},
	}
}

// Service providers

type serviceProviderRequest struct {
	Name          string `json:"name"`
	Document      string `json:"document"`
	Service       string `json:"service"`
	MonthlyAmount int64  `json:"monthly_amount"`
	PaymentDay    int    `json:"payment_day"`
	Status        string `json:"status"`
}

func (r serviceProviderRequest) Validate() []FieldError {
	var errs []FieldError
	errs = required(errs, "name", r.Name)
	if n := len(digitsOnly(r.Document)); n != 11 && n != 14 {
		errs = append(errs, FieldError{Field: "document", Message: "must be a CPF (11 digits) or CNPJ (14 digits)"})
	}
	errs = nonNegative(errs, "monthly_amount", r.MonthlyAmount)
	errs = paymentDay(errs, r.PaymentDay)
	errs = employeeStatus(errs, r.Status)
	return errs
}

func (r serviceProviderRequest) applyTo(p *domain.ServiceProvider) {
	p.Name = strings.TrimSpace(r.Name)
	p.Document = digitsOnly(r.Document)
	p.Service = strings.TrimSpace(r.Service)
	p.MonthlyAmount = r.MonthlyAmount
	p.PaymentDay = r.PaymentDay
	p.Status = domain.EmployeeStatus(orDefault(r.Status, string(domain.EmployeeStatusActive)))
}

type serviceProviderDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Document      string    `json:"document"`
	Service       string    `json:"service"`
	MonthlyAmount int64     `json:"monthly_amount"`
	AmountDisplay string    `json:"monthly_amount_display"`
	PaymentDay    int       `json:"payment_day"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewServiceProviderHandler(store recordStore[domain.ServiceProvider]) *RecordHandler[domain.ServiceProvider, serviceProviderRequest] {
	return &RecordHandler[domain.ServiceProvider, serviceProviderRequest]{
		name:  "service-providers",
		store: store,
		setID: func(p *domain.ServiceProvider, id uuid.UUID) { p.ID = id },
		toDTO: func(p domain.ServiceProvider) any {
			return serviceProviderDTO{
				ID:            p.ID,
				Name:          p.Name,
				Document:      p.Document,
				Service:       p.Service,
				MonthlyAmount: p.MonthlyAmount,
				AmountDisplay: format.Currency(p.MonthlyAmount),
				PaymentDay:    p.PaymentDay,
				Status:        string(p.Status),
				CreatedAt:     p.CreatedAt,
				UpdatedAt:     p.UpdatedAt,
			}
		},
	}
}

// Boletos

type boletoRequest struct {
	Payer       string     `json:"payer"`
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	DueDate     string     `json:"due_date"`
	Status      string     `json:"status"`
	Barcode     string     `json:"barcode"`
	PaidAt      *time.Time `json:"paid_at"`
}

func (r boletoRequest) Validate() []FieldError {
	var errs []FieldError
	errs = required(errs, "payer", r.Payer)
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	errs = day(errs, "due_date", r.DueDate)
	if r.Status != "" && !domain.PayableStatus(r.Status).IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "must be pending, paid, overdue or cancelled"})
	}
	if b := digitsOnly(r.Barcode); r.Barcode != "" && len(b) != 44 && len(b) != 47 {
		errs = append(errs, FieldError{Field: "barcode", Message: "must have 44 or 47 digits"})
	}
	return errs
}

func (r boletoRequest) applyTo(b *domain.Boleto) {
	b.Payer = strings.TrimSpace(r.Payer)
	b.Description = strings.TrimSpace(r.Description)
	b.Amount = r.Amount
	b.DueDate, _ = time.Parse(dayLayout, r.DueDate)
	b.Status = domain.PayableStatus(orDefault(r.Status, string(domain.PayableStatusPending)))
	b.Barcode = digitsOnly(r.Barcode)
	b.PaidAt = r.PaidAt
}

type boletoRecordDTO struct {
	ID            uuid.UUID  `json:"id"`
	Payer         string     `json:"payer"`
	Description   string     `json:"description"`
	Amount        int64      `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	DueDate       string     `json:"due_date"`
	Status        string     `json:"status"`
	Barcode       string     `json:"barcode"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewBoletoHandler(store recordStore[domain.Boleto]) *RecordHandler[domain.Boleto, boletoRequest] {
	return &RecordHandler[domain.Boleto, boletoRequest]{
		name:  "boletos",
		store: store,
		setID: func(b *domain.Boleto, id uuid.UUID) { b.ID = id },
		toDTO: func(b domain.Boleto) any {
			return boletoRecordDTO{
				ID:            b.ID,
				Payer:         b.Payer,
				Description:   b.Description,
				Amount:        b.Amount,
				AmountDisplay: format.Currency(b.Amount),
				DueDate:       b.DueDate.Format(dayLayout),
				Status:        string(b.Status),
				Barcode:       b.Barcode,
				PaidAt:        b.PaidAt,
				CreatedAt:     b.CreatedAt,
				UpdatedAt:     b.UpdatedAt,
			}
		},
	}
}

func required(errs []FieldError, field, v string) []FieldError {
	if strings.TrimSpace(v) == "" {
		return append(errs, FieldError{Field: field, Message: "required"})
	}
	return errs
}

func nonNegative(errs []FieldError, field string, v int64) []FieldError {
	if v < 0 {
		return append(errs, FieldError{Field: field, Message: "must not be negative"})
	}
	return errs
}

func day(errs []FieldError, field, v string) []FieldError {
	if v == "" {
		return append(errs, FieldError{Field: field, Message: "required"})
	}
	if _, err := time.Parse(dayLayout, v); err != nil {
		return append(errs, FieldError{Field: field, Message: "must be YYYY-MM-DD"})
	}
	return errs
}

func paymentDay(errs []FieldError, v int) []FieldError {
	if v < 1 || v > 31 {
		return append(errs, FieldError{Field: "payment_day", Message: "must be between 1 and 31"})
	}
	return errs
}

func employeeStatus(errs []FieldError, v string) []FieldError {
	switch domain.EmployeeStatus(v) {
	case "", domain.EmployeeStatusActive, domain.EmployeeStatusInactive:
		return errs
	}
	return append(errs, FieldError{Field: "status", Message: "must be active or inactive"})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks length and both check digits. Punctuation is ignored.
func ValidCPF(s string) bool {
	d := digitsOnly(s)
	if len(d) != 11 || strings.Count(d, d[:1]) == 11 {
		return false
	}
	check := func(n int) int {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := sum * 10 % 11
		if r == 10 {
			r = 0
		}
		return r
	}
	return check(9) == int(d[9]-'0') && check(10) == int(d[10]-'0')
}
