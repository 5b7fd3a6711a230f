// Package indicator derives the financial dashboard figures from a set of
// operations. Amounts stay in centavos; conversion happens at the edges.
package indicator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/format"
)

const MethodOther = "other"

var trackedMethods = []string{
	domain.MethodCreditCard,
	domain.MethodDebitCard,
	domain.MethodPix,
	domain.MethodBoleto,
	MethodOther,
}

// IsRevenue reports whether op counts toward revenue: settled operations,
// plus credit card operations that are committed but not yet settled.
func IsRevenue(op domain.BalanceOperation) bool {
	switch op.Status {
	case domain.StatusPaid, domain.StatusAvailable, domain.StatusTransferred:
		return true
	case domain.StatusPending, domain.StatusWaitingFunds, domain.StatusProcessing:
		return op.PaymentMethod == domain.MethodCreditCard
	}
	return false
}

func isApproved(op domain.BalanceOperation) bool {
	switch op.Status {
	case domain.StatusPaid, domain.StatusProcessing, domain.StatusAvailable:
		return true
	}
	return false
}

func isRefund(op domain.BalanceOperation) bool {
	return op.Status == domain.StatusRefunded || op.Type == domain.OperationTypeRefund
}

func isPending(op domain.BalanceOperation) bool {
	switch op.Status {
	case domain.StatusPending, domain.StatusWaitingFunds, domain.StatusProcessing:
		return true
	}
	return false
}

func methodKey(method string) string {
	switch method {
	case domain.MethodCreditCard, domain.MethodDebitCard, domain.MethodPix, domain.MethodBoleto:
		return method
	}
	return MethodOther
}

// Calculate never divides by zero: empty input yields all-zero figures.
func Calculate(ops []domain.BalanceOperation, txs []domain.Transaction, now time.Time, loc *time.Location) domain.FinancialIndicators {
	ind := domain.FinancialIndicators{
		OperationCount:   len(ops),
		TransactionCount: len(txs),
		ByMethod:         make(map[string]domain.MethodShare, len(trackedMethods)),
	}

	var eligible, approved, refunds int
	for _, op := range ops {
		if isApproved(op) {
			approved++
		}
		if isRefund(op) {
			refunds++
		}
		if isPending(op) {
			ind.PendingAmount += op.Amount
		}
		if op.Status == domain.StatusAvailable {
			ind.AvailableAmount += op.Amount
		}

		if !IsRevenue(op) {
			continue
		}
		eligible++
		ind.TotalRevenue += op.Amount
		if op.Fee != nil {
			ind.TotalFees += *op.Fee
		}

		share := ind.ByMethod[methodKey(op.PaymentMethod)]
		share.Revenue += op.Amount
		share.Count++
		ind.ByMethod[methodKey(op.PaymentMethod)] = share

		if format.SameDay(op.CreatedAt, now, loc) {
			ind.TodayRevenue += op.Amount
		}
		if format.SameMonth(op.CreatedAt, now, loc) {
			ind.MonthRevenue += op.Amount
		}
	}

	ind.NetRevenue = ind.TotalRevenue - ind.TotalFees
	if eligible > 0 {
		ind.AverageTicket = ind.TotalRevenue / int64(eligible)
	}
	ind.ApprovalRate = Percentage(int64(approved), int64(len(ops)))
	ind.RefundRate = Percentage(int64(refunds), int64(len(ops)))

	for _, m := range trackedMethods {
		share := ind.ByMethod[m]
		share.Percentage = Percentage(share.Revenue, ind.TotalRevenue)
		ind.ByMethod[m] = share
	}
	ind.CreditCardPercentage = ind.ByMethod[domain.MethodCreditCard].Percentage
	ind.DebitCardPercentage = ind.ByMethod[domain.MethodDebitCard].Percentage
	ind.PixPercentage = ind.ByMethod[domain.MethodPix].Percentage
	ind.BoletoPercentage = ind.ByMethod[domain.MethodBoleto].Percentage

	return ind
}

// Percentage returns part/total*100 rounded to one decimal, or 0 when total
// is zero.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(1).
		InexactFloat64()
}
