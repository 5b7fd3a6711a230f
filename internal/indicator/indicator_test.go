package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

var now = time.Date(2026, 4, 15, 15, 0, 0, 0, time.UTC)

func fee(v int64) *int64 { return &v }

func TestCalculate_Empty(t *testing.T) {
	ind := Calculate(nil, nil, now, time.UTC)

	assert.Zero(t, ind.TotalRevenue)
	assert.Zero(t, ind.AverageTicket)
	for name, v := range map[string]float64{
		"approval":    ind.ApprovalRate,
		"refund":      ind.RefundRate,
		"credit_card": ind.CreditCardPercentage,
		"debit_card":  ind.DebitCardPercentage,
		"pix":         ind.PixPercentage,
		"boleto":      ind.BoletoPercentage,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
		assert.Zero(t, v, name)
	}
	for _, share := range ind.ByMethod {
		assert.Zero(t, share.Percentage)
	}
}

func TestCalculate_PixAndPendingCardScenario(t *testing.T) {
	ops := []domain.BalanceOperation{
		{ID: "a", Status: domain.StatusPaid, PaymentMethod: domain.MethodPix, Amount: 100, CreatedAt: now},
		{ID: "b", Status: domain.StatusWaitingFunds, PaymentMethod: domain.MethodCreditCard, Amount: 50, CreatedAt: now},
	}

	ind := Calculate(ops, nil, now, time.UTC)
	assert.Equal(t, int64(150), ind.TotalRevenue)
	assert.InDelta(t, 66.7, ind.PixPercentage, 0.001)
	assert.InDelta(t, 33.3, ind.CreditCardPercentage, 0.001)
	assert.Equal(t, int64(75), ind.AverageTicket)
	assert.Equal(t, int64(50), ind.PendingAmount)
}

func TestCalculate_Rates(t *testing.T) {
	ops := []domain.BalanceOperation{
		{Status: domain.StatusPaid, PaymentMethod: domain.MethodBoleto, Amount: 1000, Fee: fee(30), CreatedAt: now},
		{Status: domain.StatusAvailable, PaymentMethod: domain.MethodDebitCard, Amount: 2000, Fee: fee(70), CreatedAt: now.AddDate(0, 0, -3)},
		{Status: domain.StatusRefunded, PaymentMethod: domain.MethodCreditCard, Amount: 500, CreatedAt: now},
		{Status: domain.StatusPending, PaymentMethod: domain.MethodBoleto, Amount: 800, CreatedAt: now},
		{Status: domain.StatusTransferred, Type: domain.OperationTypeRefund, PaymentMethod: "voucher", Amount: 200, CreatedAt: now.AddDate(0, -1, 0)},
		{Status: domain.StatusRefused, PaymentMethod: domain.MethodCreditCard, Amount: 900, CreatedAt: now},
	}

	ind := Calculate(ops, []domain.Transaction{{ID: "t"}}, now, time.UTC)

	assert.Equal(t, 6, ind.OperationCount)
	assert.Equal(t, 1, ind.TransactionCount)
	assert.Equal(t, int64(3200), ind.TotalRevenue)
	assert.Equal(t, int64(100), ind.TotalFees)
	assert.Equal(t, int64(3100), ind.NetRevenue)
	assert.Equal(t, int64(1066), ind.AverageTicket)
	assert.InDelta(t, 33.3, ind.ApprovalRate, 0.001)
	assert.InDelta(t, 33.3, ind.RefundRate, 0.001)
	assert.Equal(t, int64(1000), ind.TodayRevenue)
	assert.Equal(t, int64(3000), ind.MonthRevenue)
	assert.Equal(t, int64(800), ind.PendingAmount)
	assert.Equal(t, int64(2000), ind.AvailableAmount)

	require.Contains(t, ind.ByMethod, MethodOther)
	assert.Equal(t, int64(200), ind.ByMethod[MethodOther].Revenue)
	assert.InDelta(t, 6.3, ind.ByMethod[MethodOther].Percentage, 0.001)
	assert.InDelta(t, 62.5, ind.DebitCardPercentage, 0.001)
	assert.InDelta(t, 31.3, ind.BoletoPercentage, 0.001)
	assert.Zero(t, ind.CreditCardPercentage)
}

func TestCalculate_DayBucketsUseLocation(t *testing.T) {
	sp := time.FixedZone("BRT", -3*3600)
	// 01:00 UTC on the 16th is still the 15th in Sao Paulo.
	late := time.Date(2026, 4, 16, 1, 0, 0, 0, time.UTC)
	ops := []domain.BalanceOperation{{Status: domain.StatusPaid, PaymentMethod: domain.MethodPix, Amount: 100, CreatedAt: late}}

	assert.Equal(t, int64(100), Calculate(ops, nil, now, sp).TodayRevenue)
	assert.Zero(t, Calculate(ops, nil, now, time.UTC).TodayRevenue)
}

func TestPercentage(t *testing.T) {
	assert.Zero(t, Percentage(5, 0))
	assert.InDelta(t, 100.0, Percentage(3, 3), 0.001)
	assert.InDelta(t, 14.3, Percentage(1, 7), 0.001)
}
