package service_interfaces

import (
	"context"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

type MatcherService interface {
	Match(sourceBatch []domain.SourceTransaction, targetBatch []domain.TargetTransaction) domain.MatchResult
}

type SettlementService interface {
	HandleCaptureSucceeded(ctx context.Context, capture domain.SourceTransaction) error
}

type ReconciliationService interface {
	Reconcile(ctx context.Context, now time.Time, sourceBatch []domain.SourceTransaction, targetBatch []domain.TargetTransaction) (domain.ReconciliationReport, error)
}

type AuditService interface {
	Scan(ctx context.Context, now time.Time) ([]domain.LedgerEntry, error)
	Run(ctx context.Context, now time.Time) error
}

type RetryQueue interface {
	Enqueue(payload domain.DispatchRequest)
	Drain(ctx context.Context, now time.Time, dispatch DispatchFunc)
	Len() int
}

type ERPSyncService interface {
	Sync(ctx context.Context) (int, error)
}
