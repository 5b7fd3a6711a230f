package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

const operationColumns = `external_id, source, type, status, amount, fee, payment_method,
	installments, acquirer_name, authorization_code, tid, nsu, card_brand, card_last_four,
	antifraud_score, real_code, description, created_at, synced_at, updated_at, status_corrected_at`

type OperationRepository struct {
	db *sql.DB
}

func NewOperationRepository(db *sql.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// UpsertMany writes ops in one transaction keyed on (source, external_id).
// A row whose status was corrected keeps that status; every other column is
// refreshed from the feed.
func (r *OperationRepository) UpsertMany(ctx context.Context, ops []domain.BalanceOperation) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}

	written := 0
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO balance_operations (
				external_id, source, type, status, amount, fee, payment_method,
				installments, acquirer_name, authorization_code, tid, nsu, card_brand, card_last_four,
				antifraud_score, real_code, description, created_at, synced_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now()
			)
			ON CONFLICT (source, external_id) DO UPDATE SET
				type = EXCLUDED.type,
				status = CASE WHEN balance_operations.status_corrected_at IS NULL
					THEN EXCLUDED.status ELSE balance_operations.status END,
				amount = EXCLUDED.amount,
				fee = EXCLUDED.fee,
				payment_method = EXCLUDED.payment_method,
				installments = EXCLUDED.installments,
				acquirer_name = EXCLUDED.acquirer_name,
				authorization_code = EXCLUDED.authorization_code,
				tid = EXCLUDED.tid,
				nsu = EXCLUDED.nsu,
				card_brand = EXCLUDED.card_brand,
				card_last_four = EXCLUDED.card_last_four,
				antifraud_score = EXCLUDED.antifraud_score,
				real_code = EXCLUDED.real_code,
				description = EXCLUDED.description,
				created_at = EXCLUDED.created_at,
				synced_at = now(),
				updated_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, op := range ops {
			if op.ID == "" {
				continue
			}
			_, err := stmt.ExecContext(ctx,
				op.ID, op.Source, op.Type, op.Status, op.Amount, op.Fee, op.PaymentMethod,
				op.Installments, op.AcquirerName, op.AuthorizationCode, op.TID, op.NSU, op.CardBrand, op.CardLastFour,
				op.AntifraudScore, op.RealCode, op.Description, op.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("upsert %s/%s: %w", op.Source, op.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("UpsertMany: %w", err)
	}
	return written, nil
}

func (r *OperationRepository) GetByID(ctx context.Context, source domain.OperationSource, externalID string) (*domain.StoredOperation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM balance_operations WHERE source = $1 AND external_id = $2`,
		source, externalID,
	)
	op, err := scanOperation(row)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", translate(err))
	}
	return op, nil
}

// ListSince returns operations created at or after since, newest first.
func (r *OperationRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]domain.StoredOperation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM balance_operations
		WHERE created_at >= $1
		ORDER BY created_at DESC, external_id
		LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListSince: %w", err)
	}
	return collectOperations(rows, "ListSince")
}

// FindStuckCardOperations returns credit card operations still waiting for
// funds that were created at or after since, oldest first.
func (r *OperationRepository) FindStuckCardOperations(ctx context.Context, since time.Time) ([]domain.StoredOperation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM balance_operations
		WHERE payment_method = $1 AND status = $2 AND created_at >= $3
		ORDER BY created_at ASC, external_id`,
		domain.MethodCreditCard, domain.StatusWaitingFunds, since,
	)
	if err != nil {
		return nil, fmt.Errorf("FindStuckCardOperations: %w", err)
	}
	return collectOperations(rows, "FindStuckCardOperations")
}

// ApplyStatusCorrections updates every row in batch inside one transaction.
// A correction that matches no row rolls the whole batch back.
func (r *OperationRepository) ApplyStatusCorrections(ctx context.Context, batch []domain.StatusCorrection) error {
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, c := range batch {
			res, err := tx.ExecContext(ctx,
				`UPDATE balance_operations
				SET status = $1, status_corrected_at = now(), updated_at = now()
				WHERE source = $2 AND external_id = $3`,
				c.Status, c.Source, c.ExternalID,
			)
			if err != nil {
				return fmt.Errorf("correct %s/%s: %w", c.Source, c.ExternalID, err)
			}
			if err := rowsAffected(res); err != nil {
				return fmt.Errorf("correct %s/%s: %w", c.Source, c.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ApplyStatusCorrections: %w", err)
	}
	return nil
}

func collectOperations(rows *sql.Rows, op string) ([]domain.StoredOperation, error) {
	defer rows.Close()

	var out []domain.StoredOperation
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

func scanOperation(s scanner) (*domain.StoredOperation, error) {
	var o domain.StoredOperation
	var installments sql.NullInt64

	err := s.Scan(
		&o.ID, &o.Source, &o.Type, &o.Status, &o.Amount, &o.Fee, &o.PaymentMethod,
		&installments, &o.AcquirerName, &o.AuthorizationCode, &o.TID, &o.NSU, &o.CardBrand, &o.CardLastFour,
		&o.AntifraudScore, &o.RealCode, &o.Description, &o.CreatedAt, &o.SyncedAt, &o.UpdatedAt, &o.StatusCorrectedAt,
	)
	if err != nil {
		return nil, err
	}

	if installments.Valid {
		n := int(installments.Int64)
		o.Installments = &n
	}
	return &o, nil
}
