package merge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/mapper"
)

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func op(id, code string, amount int64, offset time.Duration, method string) domain.BalanceOperation {
	return domain.BalanceOperation{
		ID:            id,
		RealCode:      code,
		Amount:        amount,
		CreatedAt:     base.Add(offset),
		PaymentMethod: method,
	}
}

func sampleSet() []domain.BalanceOperation {
	return []domain.BalanceOperation{
		op("or_1", "A1", 1000, 0, domain.MethodPix),
		op("or_2", "A2", 2000, time.Minute, domain.MethodCreditCard),
		op("or_1", "A1", 1000, 0, domain.MethodPix),
		op("py_9", "", 500, time.Hour, domain.MethodBoleto),
		op("or_2", "A2", 2500, time.Minute, domain.MethodCreditCard),
		op("py_9", "", 500, time.Hour, domain.MethodBoleto),
	}
}

func TestKey_UsesIDWhenRealCodeMissing(t *testing.T) {
	withCode := op("or_1", "A1", 100, 0, domain.MethodPix)
	withoutCode := op("or_1", "", 100, 0, domain.MethodPix)

	assert.Equal(t, "A1|100|2026-02-01T10:00:00Z|pix", Key(withCode))
	assert.Equal(t, "or_1|100|2026-02-01T10:00:00Z|pix", Key(withoutCode))
}

func TestKey_NormalizesTimezone(t *testing.T) {
	a := op("or_1", "A1", 100, 0, domain.MethodPix)
	b := a
	b.CreatedAt = a.CreatedAt.In(time.FixedZone("BRT", -3*3600))
	assert.Equal(t, Key(a), Key(b))
}

func TestDeduplicate_KeepsFirstInOrder(t *testing.T) {
	got := Deduplicate(sampleSet())
	require.Len(t, got, 4)
	assert.Equal(t, "or_1", got[0].ID)
	assert.Equal(t, int64(2000), got[1].Amount)
	assert.Equal(t, "py_9", got[2].ID)
	assert.Equal(t, int64(2500), got[3].Amount, "same id with a different amount is kept")
}

func TestMerge_Idempotent(t *testing.T) {
	d := Deduplicate(sampleSet())
	assert.Equal(t, d, Merge(d, d))
	assert.Equal(t, d, Deduplicate(d))
}

func TestMerge_KeyTotality(t *testing.T) {
	merged := Merge(sampleSet(), sampleSet())
	seen := map[string]bool{}
	for _, o := range merged {
		k := Key(o)
		assert.False(t, seen[k], "duplicate key survived: %s", k)
		seen[k] = true
	}
}

func TestMerge_PrimaryWins(t *testing.T) {
	primary := op("or_1", "A1", 1000, 0, domain.MethodPix)
	primary.Source = domain.SourceOrders
	secondary := primary
	secondary.ID = "py_1"
	secondary.Source = domain.SourcePayables

	got := Merge([]domain.BalanceOperation{primary}, []domain.BalanceOperation{secondary})
	require.Len(t, got, 1)
	assert.Equal(t, domain.SourceOrders, got[0].Source)
}

func TestMerge_OrdersAndPayablesScenario(t *testing.T) {
	orderDocs := []json.RawMessage{
		json.RawMessage(`{"id":"or_1","code":"P1001","amount":1000,"created_at":"2026-02-01T10:00:00Z","charges":[{"status":"paid","payment_method":"pix"}]}`),
		json.RawMessage(`{"id":"or_2","code":"P1002","amount":2000,"created_at":"2026-02-01T11:00:00Z","charges":[{"status":"paid","payment_method":"credit_card"}]}`),
		json.RawMessage(`{"id":"or_3","code":"P1003","amount":3000,"created_at":"2026-02-01T12:00:00Z","charges":[{"status":"pending","payment_method":"boleto"}]}`),
	}
	payableDocs := []json.RawMessage{
		json.RawMessage(`{"id":77001,"code":"P1002","amount":2000,"status":"waiting_funds","payment_method":"credit_card","created_at":"2026-02-01T11:00:00Z"}`),
		json.RawMessage(`{"id":77002,"amount":4000,"status":"paid","payment_method":"debit_card","created_at":"2026-02-02T09:00:00Z"}`),
	}

	orders, _ := mapper.DecodeOrders(orderDocs)
	payables, _ := mapper.DecodePayables(payableDocs)

	merged := Merge(mapper.MapOrders(orders), mapper.MapPayables(payables))
	require.Len(t, merged, 4)

	var shared []domain.BalanceOperation
	for _, o := range merged {
		if o.RealCode == "P1002" {
			shared = append(shared, o)
		}
	}
	require.Len(t, shared, 1)
	assert.Equal(t, domain.SourceOrders, shared[0].Source)
	assert.Equal(t, "or_2", shared[0].ID)
}

func TestCheckIntegrity(t *testing.T) {
	ops := sampleSet()
	ops = append(ops, domain.BalanceOperation{Amount: 1, CreatedAt: base})
	before := append([]domain.BalanceOperation(nil), ops...)

	report := CheckIntegrity(ops)

	assert.Equal(t, before, ops, "check does not mutate input")
	assert.Equal(t, 7, report.Checked)
	assert.Len(t, report.DuplicateKeys, 2)
	assert.Equal(t, []int{6}, report.MissingIdentity)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "or_2", report.Conflicts[0].ID)
	assert.Equal(t, []int64{2000, 2500}, report.Conflicts[0].Amounts)
	assert.ErrorIs(t, report.Err(), domain.ErrIntegrityViolation)

	clean := CheckIntegrity(Deduplicate(sampleSet()))
	assert.Empty(t, clean.DuplicateKeys)
	assert.Len(t, clean.Conflicts, 1)
	assert.False(t, clean.OK())
	assert.True(t, CheckIntegrity(nil).OK())
	assert.NoError(t, CheckIntegrity(nil).Err())
}
