package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/testutil"
)

func TestBackofficeRepositories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	due := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("accounts payable lifecycle", func(t *testing.T) {
		repo := NewAccountPayableRepository(db)
		a := &domain.AccountPayable{
			ID:          uuid.New(),
			Description: "Aluguel escritório",
			Supplier:    "Imobiliária Central",
			Category:    "infra",
			Amount:      450000,
			DueDate:     due,
			Status:      domain.PayableStatusPending,
		}
		require.NoError(t, repo.Create(ctx, a))
		assert.False(t, a.CreatedAt.IsZero())

		paidAt := due.Add(2 * time.Hour)
		a.Status = domain.PayableStatusPaid
		a.PaidAt = &paidAt
		require.NoError(t, repo.Update(ctx, a))

		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PayableStatusPaid, got.Status)
		require.NotNil(t, got.PaidAt)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, repo.Delete(ctx, a.ID))
		require.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrNotFound)
		_, err = repo.Get(ctx, a.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("employees reject duplicate cpf", func(t *testing.T) {
		repo := NewEmployeeRepository(db)
		e := &domain.CltEmployee{
			ID:            uuid.New(),
			Name:          "Maria Souza",
			CPF:           "123.456.789-00",
			Role:          "Analista financeiro",
			Salary:        650000,
			AdmissionDate: due.AddDate(-1, 0, 0),
			PaymentDay:    5,
			Status:        domain.EmployeeStatusActive,
		}
		require.NoError(t, repo.Create(ctx, e))

		dup := *e
		dup.ID = uuid.New()
		require.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrConflict)

		e.PaymentDay = 10
		require.NoError(t, repo.Update(ctx, e))
		got, err := repo.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.PaymentDay)
	})

	t.Run("service providers check constraints", func(t *testing.T) {
		repo := NewServiceProviderRepository(db)
		p := &domain.ServiceProvider{
			ID:            uuid.New(),
			Name:          "Contabilidade Alfa",
			Document:      "12.345.678/0001-90",
			Service:       "contabilidade",
			MonthlyAmount: 120000,
			PaymentDay:    40,
			Status:        domain.EmployeeStatusActive,
		}
		require.ErrorIs(t, repo.Create(ctx, p), domain.ErrInvalidRequest)

		p.PaymentDay = 15
		require.NoError(t, repo.Create(ctx, p))
		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("boletos update missing row", func(t *testing.T) {
		repo := NewBoletoRepository(db)
		b := &domain.Boleto{
			ID:      uuid.New(),
			Payer:   "Cliente XPTO",
			Amount:  9900,
			DueDate: due,
			Status:  domain.PayableStatusPending,
			Barcode: "23790000000000000000",
		}
		require.ErrorIs(t, repo.Update(ctx, b), domain.ErrNotFound)
		require.NoError(t, repo.Create(ctx, b))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Cliente XPTO", list[0].Payer)
	})
}
