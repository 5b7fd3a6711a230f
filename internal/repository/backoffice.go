package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

func queryAll[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func deleteByID(ctx context.Context, db *sql.DB, table string, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// Accounts payable

const accountPayableColumns = `id, description, supplier, category, amount, due_date, status, paid_at, created_at, updated_at`

type AccountPayableRepository struct {
	db *sql.DB
}

func NewAccountPayableRepository(db *sql.DB) *AccountPayableRepository {
	return &AccountPayableRepository{db: db}
}

func (r *AccountPayableRepository) List(ctx context.Context) ([]domain.AccountPayable, error) {
	out, err := queryAll(ctx, r.db, scanAccountPayable,
		`SELECT `+accountPayableColumns+` FROM accounts_payable ORDER BY due_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

func (r *AccountPayableRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AccountPayable, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountPayableColumns+` FROM accounts_payable WHERE id = $1`, id)
	a, err := scanAccountPayable(row)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", translate(err))
	}
	return a, nil
}

func (r *AccountPayableRepository) Create(ctx context.Context, a *domain.AccountPayable) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts_payable (id, description, supplier, category, amount, due_date, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		a.ID, a.Description, a.Supplier, a.Category, a.Amount, a.DueDate, a.Status, a.PaidAt,
	)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("Create: %w", translate(err))
	}
	return nil
}

func (r *AccountPayableRepository) Update(ctx context.Context, a *domain.AccountPayable) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts_payable
		SET description = $2, supplier = $3, category = $4, amount = $5, due_date = $6,
			status = $7, paid_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		a.ID, a.Description, a.Supplier, a.Category, a.Amount, a.DueDate, a.Status, a.PaidAt,
	)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("Update: %w", translate(err))
	}
	return nil
}

func (r *AccountPayableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteByID(ctx, r.db, "accounts_payable", id); err != nil {
		return fmt.Errorf("Delete: %w", translate(err))
	}
	return nil
}

func scanAccountPayable(s scanner) (*domain.AccountPayable, error) {
	var a domain.AccountPayable
	err := s.Scan(&a.ID, &a.Description, &a.Supplier, &a.Category, &a.Amount, &a.DueDate,
		&a.Status, &a.PaidAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CLT employees

const employeeColumns = `id, name, cpf, role, salary, admission_date, payment_day, status, created_at, updated_at`

type EmployeeRepository struct {
	db *sql.DB
}

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) List(ctx context.Context) ([]domain.CltEmployee, error) {
	out, err := queryAll(ctx, r.db, scanEmployee,
		`SELECT `+employeeColumns+` FROM clt_employees ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id uuid.UUID) (*domain.CltEmployee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM clt_employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", translate(err))
	}
	return e, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *domain.CltEmployee) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO clt_employees (id, name, cpf, role, salary, admission_date, payment_day, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		e.ID, e.Name, e.CPF, e.Role, e.Salary, e.AdmissionDate, e.PaymentDay, e.Status,
	)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("Create: %w", translate(err))
	}
	return nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e *domain.CltEmployee) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE clt_employees
		SET name = $2, cpf = $3, role = $4, salary = $5, admission_date = $6,
			payment_day = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		e.ID, e.Name, e.CPF, e.Role, e.Salary, e.AdmissionDate, e.PaymentDay, e.Status,
	)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("Update: %w", translate(err))
	}
	return nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteByID(ctx, r.db, "clt_employees", id); err != nil {
		return fmt.Errorf("Delete: %w", translate(err))
	}
	return nil
}

func scanEmployee(s scanner) (*domain.CltEmployee, error) {
	var e domain.CltEmployee
	err := s.Scan(&e.ID, &e.Name, &e.CPF, &e.Role, &e.Salary, &e.AdmissionDate,
		&e.PaymentDay, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Service providers

const serviceProviderColumns = `id, name, document, service, monthly_amount, payment_day, status, created_at, updated_at`

type ServiceProviderRepository struct {
	db *sql.DB
}

func NewServiceProviderRepository(db *sql.DB) *ServiceProviderRepository {
	return &ServiceProviderRepository{db: db}
}

func (r *ServiceProviderRepository) List(ctx context.Context) ([]domain.ServiceProvider, error) {
	out, err := queryAll(ctx, r.db, scanServiceProvider,
		`SELECT `+serviceProviderColumns+` FROM service_providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

func (r *ServiceProviderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ServiceProvider, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serviceProviderColumns+` FROM service_providers WHERE id = $1`, id)
	p, err := scanServiceProvider(row)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", translate(err))
	}
	return p, nil
}

func (r *ServiceProviderRepository) Create(ctx context.Context, p *domain.ServiceProvider) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO service_providers (id, name, document, service, monthly_amount, payment_day, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Document, p.Service, p.MonthlyAmount, p.PaymentDay, p.Status,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("Create: %w", translate(err))
	}
	return nil
}

func (r *ServiceProviderRepository) Update(ctx context.Context, p *domain.ServiceProvider) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE service_providers
		SET name = $2, document = $3, service = $4, monthly_amount = $5, payment_day = $6,
			status = $7, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Document, p.Service, p.MonthlyAmount, p.PaymentDay, p.Status,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("Update: %w", translate(err))
	}
	return nil
}

func (r *ServiceProviderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteByID(ctx, r.db, "service_providers", id); err != nil {
		return fmt.Errorf("Delete: %w", translate(err))
	}
	return nil
}

func scanServiceProvider(s scanner) (*domain.ServiceProvider, error) {
	var p domain.ServiceProvider
	err := s.Scan(&p.ID, &p.Name, &p.Document, &p.Service, &p.MonthlyAmount,
		&p.PaymentDay, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Boletos

const boletoColumns = `id, payer, description, amount, due_date, status, barcode, paid_at, created_at, updated_at`

type BoletoRepository struct {
	db *sql.DB
}

func NewBoletoRepository(db *sql.DB) *BoletoRepository {
	return &BoletoRepository{db: db}
}

func (r *BoletoRepository) List(ctx context.Context) ([]domain.Boleto, error) {
	out, err := queryAll(ctx, r.db, scanBoleto,
		`SELECT `+boletoColumns+` FROM boletos ORDER BY due_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return out, nil
}

func (r *BoletoRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Boleto, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+boletoColumns+` FROM boletos WHERE id = $1`, id)
	b, err := scanBoleto(row)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", translate(err))
	}
	return b, nil
}

func (r *BoletoRepository) Create(ctx context.Context, b *domain.Boleto) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO boletos (id, payer, description, amount, due_date, status, barcode, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		b.ID, b.Payer, b.Description, b.Amount, b.DueDate, b.Status, b.Barcode, b.PaidAt,
	)
	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("Create: %w", translate(err))
	}
	return nil
}

func (r *BoletoRepository) Update(ctx context.Context, b *domain.Boleto) error {
	row := r.db.QueryRowContext(ctx,
		`UPDATE boletos
		SET payer = $2, description = $3, amount = $4, due_date = $5, status = $6,
			barcode = $7, paid_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		b.ID, b.Payer, b.Description, b.Amount, b.DueDate, b.Status, b.Barcode, b.PaidAt,
	)
	if err := row.Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("Update: %w", translate(err))
	}
	return nil
}

func (r *BoletoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := deleteByID(ctx, r.db, "boletos", id); err != nil {
		return fmt.Errorf("Delete: %w", translate(err))
	}
	return nil
}

func scanBoleto(s scanner) (*domain.Boleto, error) {
	var b domain.Boleto
	err := s.Scan(&b.ID, &b.Payer, &b.Description, &b.Amount, &b.DueDate,
		&b.Status, &b.Barcode, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
