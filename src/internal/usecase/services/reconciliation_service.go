package services

import (
	"context"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/repo_interfaces"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

// ReconciliationService runs the matcher over the two feeds, persists matched
// pairs to the ledger, and alerts on everything that could not be paired.
// Ledger writes are idempotent per source ID, so re-running a day is safe.
type ReconciliationService struct {
	matcher    service_interfaces.MatcherService
	ledgerRepo repo_interfaces.LedgerRepository
	alert      service_interfaces.AlertSink
}

func NewReconciliationService(
	matcher service_interfaces.MatcherService,
	ledgerRepo repo_interfaces.LedgerRepository,
	alert service_interfaces.AlertSink,
) *ReconciliationService {
	return &ReconciliationService{
		matcher:    matcher,
		ledgerRepo: ledgerRepo,
		alert:      alert,
	}
}

func (s *ReconciliationService) Reconcile(
	ctx context.Context,
	now time.Time,
	sourceBatch []domain.SourceTransaction,
	targetBatch []domain.TargetTransaction,
) (domain.ReconciliationReport, error) {
	logger.Info("reconciliation run started", logger.Fields{
		"sourceCount": len(sourceBatch),
		"targetCount": len(targetBatch),
	})

	result := s.matcher.Match(sourceBatch, targetBatch)

	for _, pair := range result.Matched {
		targetID := pair.TargetID
		if err := s.ledgerRepo.Record(ctx, domain.LedgerEntry{
			SourceID:  pair.SourceID,
			TargetID:  &targetID,
			Amount:    pair.SourceAmount,
			Status:    domain.SettlementStatusCompleted,
			Timestamp: pair.Timestamp,
		}); err != nil {
			return domain.ReconciliationReport{}, err
		}
	}

	for _, unmatched := range result.UnmatchedSource {
		if s.alert == nil {
			break
		}
		s.alert(ctx, domain.Alert{
			Kind:     domain.AlertKindUnmatchedSource,
			SourceID: unmatched.SourceID,
			Address:  unmatched.CounterpartyAddress,
			Amount:   unmatched.Amount,
			Detail:   unmatched.Reason,
		})
	}

	for _, unmatched := range result.UnmatchedTarget {
		if s.alert == nil {
			break
		}
		s.alert(ctx, domain.Alert{
			Kind:     domain.AlertKindUnmatchedTarget,
			TargetID: unmatched.TargetID,
			Address:  unmatched.DestinationAddress,
			Amount:   unmatched.Amount,
			Detail:   unmatched.Reason,
		})
	}

	report := BuildReport(result, now)

	logger.Info("reconciliation run finished", logger.Fields{
		"matched":         report.Summary.TotalMatched,
		"unmatchedSource": report.Summary.TotalUnmatchedSource,
		"unmatchedTarget": report.Summary.TotalUnmatchedTarget,
		"platformFees":    report.Summary.TotalPlatformFees,
	})

	return report, nil
}
