// Package mapper turns provider payloads into normalized operations and
// transactions. Mapping does no I/O and tolerates missing optional fields.
package mapper

import (
	"fmt"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

func MapOrders(orders []OrderPayload) []domain.BalanceOperation {
	out := make([]domain.BalanceOperation, 0, len(orders))
	for _, o := range orders {
		out = append(out, mapOrder(o))
	}
	return out
}

func mapOrder(o OrderPayload) domain.BalanceOperation {
	op := domain.BalanceOperation{
		ID:        o.ID.String(),
		Source:    domain.SourceOrders,
		Type:      domain.OperationTypeOrder,
		Status:    o.Status,
		Amount:    o.Amount.Minor,
		CreatedAt: o.CreatedAt.Time,
	}
	if len(o.Items) > 0 {
		op.Description = o.Items[0].Description
	}

	ref := RefSource{Code: o.Code.String(), ID: op.ID, CreatedAt: op.CreatedAt}

	if len(o.Charges) > 0 {
		ch := o.Charges[0]
		lt := ch.LastTransaction
		if ch.Status != "" {
			op.Status = ch.Status
		}
		if !o.Amount.Valid {
			op.Amount = ch.Amount.Minor
		}
		op.PaymentMethod = ch.PaymentMethod
		op.Installments = lt.Installments.Ptr()
		op.AcquirerName = lt.AcquirerName
		op.AuthorizationCode = lt.AcquirerAuthCode.String()
		op.TID = lt.AcquirerTID.String()
		op.NSU = lt.AcquirerNSU.String()
		op.CardBrand = lt.Card.Brand
		op.CardLastFour = lt.Card.LastFourDigits.String()
		op.AntifraudScore = lt.AntifraudResponse.Score.Ptr()

		ref.ReferenceKey = lt.ReferenceKey.String()
		ref.AuthorizationCode = op.AuthorizationCode
		ref.GatewayID = firstNonEmpty(ch.GatewayID.String(), lt.GatewayID.String())
	}

	if op.Description == "" && o.Code != "" {
		op.Description = fmt.Sprintf("Pedido %s", o.Code)
	}
	op.RealCode = ReferenceCode(ref)
	return op
}

func MapPayables(payables []PayablePayload) []domain.BalanceOperation {
	out := make([]domain.BalanceOperation, 0, len(payables))
	for _, p := range payables {
		op := domain.BalanceOperation{
			ID:                p.ID.String(),
			Source:            domain.SourcePayables,
			Type:              domain.OperationType(firstNonEmpty(p.Type, string(domain.OperationTypePayable))),
			Status:            p.Status,
			Amount:            p.Amount.Minor,
			Fee:               totalFee(p.Fee, p.AnticipationFee),
			CreatedAt:         p.CreatedAt.Time,
			PaymentMethod:     p.PaymentMethod,
			Installments:      p.Installment.Ptr(),
			AuthorizationCode: p.AuthorizationCode.String(),
		}
		if op.Installments != nil {
			op.Description = fmt.Sprintf("Recebível parcela %d", *op.Installments)
		} else {
			op.Description = "Recebível"
		}
		op.RealCode = ReferenceCode(RefSource{
			Code:              p.Code.String(),
			AuthorizationCode: op.AuthorizationCode,
			GatewayID:         p.GatewayID.String(),
			ID:                op.ID,
			CreatedAt:         op.CreatedAt,
		})
		out = append(out, op)
	}
	return out
}

func MapBalanceOperations(records []BalanceOperationPayload) []domain.BalanceOperation {
	out := make([]domain.BalanceOperation, 0, len(records))
	for _, b := range records {
		mo := b.MovementObject
		op := domain.BalanceOperation{
			ID:            b.ID.String(),
			Source:        domain.SourceBalanceOperations,
			Type:          domain.OperationType(b.Type),
			Status:        b.Status,
			Amount:        b.Amount.Minor,
			Fee:           b.Fee.Ptr(),
			CreatedAt:     b.CreatedAt.Time,
			Description:   mo.Object,
			PaymentMethod: mo.PaymentMethod,
			Installments:  mo.Installment.Ptr(),
		}
		op.RealCode = ReferenceCode(RefSource{
			GatewayID: mo.GatewayID.String(),
			ID:        firstNonEmpty(mo.ID.String(), op.ID),
			CreatedAt: op.CreatedAt,
		})
		out = append(out, op)
	}
	return out
}

func MapTransactions(charges []ChargePayload) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(charges))
	for _, ch := range charges {
		lt := ch.LastTransaction
		tx := domain.Transaction{
			ID:            ch.ID.String(),
			Status:        ch.Status,
			PaymentMethod: ch.PaymentMethod,
			Amount:        ch.Amount.Minor,
			PaidAmount:    ch.PaidAmount.Ptr(),
			Installments:  lt.Installments.Ptr(),
			AcquirerName:  lt.AcquirerName,
			CardBrand:     lt.Card.Brand,
			CardLastFour:  lt.Card.LastFourDigits.String(),
			CustomerName:  ch.Customer.Name,
			CustomerEmail: ch.Customer.Email,
			Description:   ch.Description,
			CreatedAt:     ch.CreatedAt.Time,
			PaidAt:        ch.PaidAt.Ptr(),
		}

		switch ch.PaymentMethod {
		case domain.MethodBoleto:
			tx.Boleto = &domain.BoletoDetail{
				URL:         lt.URL,
				Line:        lt.Line,
				Barcode:     lt.Barcode,
				NossoNumero: lt.NossoNumero.String(),
				DueAt:       lt.DueAt.Ptr(),
			}
		case domain.MethodPix:
			tx.Pix = &domain.PixDetail{
				QRCode:    lt.QRCode,
				QRCodeURL: lt.QRCodeURL,
				ExpiresAt: lt.ExpiresAt.Ptr(),
			}
		}

		tx.RealCode = ReferenceCode(RefSource{
			Code:              ch.Code.String(),
			ReferenceKey:      lt.ReferenceKey.String(),
			AuthorizationCode: lt.AcquirerAuthCode.String(),
			GatewayID:         firstNonEmpty(ch.GatewayID.String(), lt.GatewayID.String()),
			ID:                tx.ID,
			CreatedAt:         tx.CreatedAt,
		})
		out = append(out, tx)
	}
	return out
}

func totalFee(fees ...Amount) *int64 {
	var (
		total int64
		found bool
	)
	for _, f := range fees {
		if f.Valid {
			total += f.Minor
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
