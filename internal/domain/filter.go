package domain

import "time"

// FilterOptions zero values mean "no constraint".
type FilterOptions struct {
	StartDate      *time.Time
	EndDate        *time.Time
	PaymentMethods []string
	Statuses       []string
	MinAmount      *int64
	MaxAmount      *int64
	Search         string
	Acquirer       string
	CardBrand      string
}

type MethodShare struct {
	Revenue    int64
	Percentage float64
	Count      int
}

type FinancialIndicators struct {
	TotalRevenue         int64
	TotalFees            int64
	NetRevenue           int64
	OperationCount       int
	TransactionCount     int
	AverageTicket        int64
	ApprovalRate         float64
	RefundRate           float64
	CreditCardPercentage float64
	DebitCardPercentage  float64
	PixPercentage        float64
	BoletoPercentage     float64
	ByMethod             map[string]MethodShare
	TodayRevenue         int64
	MonthRevenue         int64
	PendingAmount        int64
	AvailableAmount      int64
}
