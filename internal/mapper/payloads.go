package mapper

import "encoding/json"

type OrderPayload struct {
	ID        Text            `json:"id"`
	Code      Text            `json:"code"`
	Amount    Amount          `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt Timestamp       `json:"created_at"`
	Customer  CustomerPayload `json:"customer"`
	Items     []struct {
		Description string `json:"description"`
	} `json:"items"`
	Charges []ChargePayload `json:"charges"`
}

type CustomerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ChargePayload is both the nested charges[] element of an order and the
// top-level record of the charges feed, which is mapped to transactions.
type ChargePayload struct {
	ID              Text                   `json:"id"`
	Code            Text                   `json:"code"`
	GatewayID       Text                   `json:"gateway_id"`
	Amount          Amount                 `json:"amount"`
	PaidAmount      Amount                 `json:"paid_amount"`
	Status          string                 `json:"status"`
	PaymentMethod   string                 `json:"payment_method"`
	Description     string                 `json:"description"`
	CreatedAt       Timestamp              `json:"created_at"`
	PaidAt          Timestamp              `json:"paid_at"`
	Customer        CustomerPayload        `json:"customer"`
	LastTransaction LastTransactionPayload `json:"last_transaction"`
}

type LastTransactionPayload struct {
	ID                Text          `json:"id"`
	GatewayID         Text          `json:"gateway_id"`
	Status            string        `json:"status"`
	Installments      OptionalInt   `json:"installments"`
	AcquirerName      string        `json:"acquirer_name"`
	AcquirerTID       Text          `json:"acquirer_tid"`
	AcquirerNSU       Text          `json:"acquirer_nsu"`
	AcquirerAuthCode  Text          `json:"acquirer_auth_code"`
	ReferenceKey      Text          `json:"reference_key"`
	Card              CardPayload   `json:"card"`
	AntifraudResponse AntifraudInfo `json:"antifraud_response"`

	// boleto
	URL         string    `json:"url"`
	Line        string    `json:"line"`
	Barcode     string    `json:"barcode"`
	NossoNumero Text      `json:"nosso_numero"`
	DueAt       Timestamp `json:"due_at"`

	// pix
	QRCode    string    `json:"qr_code"`
	QRCodeURL string    `json:"qr_code_url"`
	ExpiresAt Timestamp `json:"expires_at"`
}

type CardPayload struct {
	Brand          string `json:"brand"`
	LastFourDigits Text   `json:"last_four_digits"`
}

type AntifraudInfo struct {
	Score OptionalFloat `json:"score"`
}

type PayablePayload struct {
	ID                Text        `json:"id"`
	Code              Text        `json:"code"`
	Type              string      `json:"type"`
	Status            string      `json:"status"`
	Amount            Amount      `json:"amount"`
	Fee               Amount      `json:"fee"`
	AnticipationFee   Amount      `json:"anticipation_fee"`
	Installment       OptionalInt `json:"installment"`
	GatewayID         Text        `json:"gateway_id"`
	ChargeID          Text        `json:"charge_id"`
	PaymentMethod     string      `json:"payment_method"`
	AuthorizationCode Text        `json:"authorization_code"`
	CreatedAt         Timestamp   `json:"created_at"`
	PaymentDate       Timestamp   `json:"payment_date"`
}

type BalanceOperationPayload struct {
	ID             Text      `json:"id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Amount         Amount    `json:"amount"`
	Fee            Amount    `json:"fee"`
	CreatedAt      Timestamp `json:"created_at"`
	MovementObject struct {
		ID            Text        `json:"id"`
		Object        string      `json:"object"`
		GatewayID     Text        `json:"gateway_id"`
		PaymentMethod string      `json:"payment_method"`
		Installment   OptionalInt `json:"installment"`
	} `json:"movement_object"`
}

// Decode helpers skip records that are not JSON objects and report how many
// were dropped.

func DecodeOrders(raw []json.RawMessage) ([]OrderPayload, int) {
	return decodeAll[OrderPayload](raw)
}

func DecodePayables(raw []json.RawMessage) ([]PayablePayload, int) {
	return decodeAll[PayablePayload](raw)
}

func DecodeCharges(raw []json.RawMessage) ([]ChargePayload, int) {
	return decodeAll[ChargePayload](raw)
}

func DecodeBalanceOperations(raw []json.RawMessage) ([]BalanceOperationPayload, int) {
	return decodeAll[BalanceOperationPayload](raw)
}

func decodeAll[T any](raw []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}
