package service

import (
	"context"
	"time"

	"github.com/josh-kwaku/backoffice/internal/collector"
	"github.com/josh-kwaku/backoffice/internal/domain"
)

type pageCollector interface {
	Collect(ctx context.Context, req collector.Request) collector.Result
}

type operationStore interface {
	UpsertMany(ctx context.Context, ops []domain.BalanceOperation) (int, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]domain.StoredOperation, error)
}
