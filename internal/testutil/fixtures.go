package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

const TestCredential = "sk_test_0123456789abcdef"

// CardOperation returns a credit card payable created age ago relative to now.
func CardOperation(id, status string, amount int64, now time.Time, age time.Duration) domain.BalanceOperation {
	return domain.BalanceOperation{
		ID:            id,
		Source:        domain.SourcePayables,
		Type:          domain.OperationTypePayable,
		Status:        status,
		Amount:        amount,
		CreatedAt:     now.Add(-age).UTC().Truncate(time.Microsecond),
		PaymentMethod: domain.MethodCreditCard,
		CardBrand:     "Visa",
		RealCode:      id,
	}
}

// SeedOperations inserts ops directly, bypassing the repository.
func SeedOperations(t *testing.T, db *sql.DB, ops ...domain.BalanceOperation) {
	t.Helper()
	for _, op := range ops {
		_, err := db.ExecContext(context.Background(),
			`INSERT INTO balance_operations (external_id, source, type, status, amount, payment_method, card_brand, real_code, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			op.ID, op.Source, op.Type, op.Status, op.Amount, op.PaymentMethod, op.CardBrand, op.RealCode, op.CreatedAt,
		)
		if err != nil {
			t.Fatalf("seed operation %s: %v", op.ID, err)
		}
	}
}
