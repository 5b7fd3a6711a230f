package domain

import "time"

type OperationSource string

const (
	SourceOrders            OperationSource = "orders"
	SourcePayables          OperationSource = "payables"
	SourceBalanceOperations OperationSource = "balance_operations"
	SourceCharges           OperationSource = "charges"
)

// OperationType is open-ended: unknown provider values are kept verbatim.
type OperationType string

const (
	OperationTypePayable       OperationType = "payable"
	OperationTypeTransfer      OperationType = "transfer"
	OperationTypeFeeCollection OperationType = "fee_collection"
	OperationTypeRefund        OperationType = "refund"
	OperationTypeChargeback    OperationType = "chargeback"
	OperationTypeAnticipation  OperationType = "anticipation"
	OperationTypeCredit        OperationType = "credit"
	OperationTypeDebit         OperationType = "debit"
	OperationTypeOrder         OperationType = "order"
)

const (
	StatusPaid         = "paid"
	StatusProcessing   = "processing"
	StatusRefused      = "refused"
	StatusPending      = "pending"
	StatusAvailable    = "available"
	StatusWaitingFunds = "waiting_funds"
	StatusTransferred  = "transferred"
	StatusRefunded     = "refunded"
	StatusCaptured     = "captured"
	StatusFailed       = "failed"
	StatusCanceled     = "canceled"
)

const (
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
	MethodPix        = "pix"
	MethodBoleto     = "boleto"
)

// BalanceOperation amounts are minor currency units (centavos).
type BalanceOperation struct {
	ID                string
	Source            OperationSource
	Type              OperationType
	Status            string
	Amount            int64
	Fee               *int64
	CreatedAt         time.Time
	Description       string
	PaymentMethod     string
	Installments      *int
	AcquirerName      string
	AuthorizationCode string
	TID               string
	NSU               string
	CardBrand         string
	CardLastFour      string
	AntifraudScore    *float64
	RealCode          string
}

type BoletoDetail struct {
	URL         string
	Line        string
	Barcode     string
	NossoNumero string
	DueAt       *time.Time
}

type PixDetail struct {
	QRCode    string
	QRCodeURL string
	ExpiresAt *time.Time
}

type Transaction struct {
	ID            string
	RealCode      string
	Status        string
	PaymentMethod string
	Amount        int64
	PaidAmount    *int64
	Installments  *int
	AcquirerName  string
	CardBrand     string
	CardLastFour  string
	CustomerName  string
	CustomerEmail string
	Description   string
	CreatedAt     time.Time
	PaidAt        *time.Time
	Boleto        *BoletoDetail
	Pix           *PixDetail
}

// StoredOperation is a BalanceOperation row as persisted in the data store.
type StoredOperation struct {
	BalanceOperation
	SyncedAt          time.Time
	UpdatedAt         time.Time
	StatusCorrectedAt *time.Time
}

type StatusCorrection struct {
	Source     OperationSource
	ExternalID string
	Status     string
}
