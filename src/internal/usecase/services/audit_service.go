package services

import (
	"context"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/repo_interfaces"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

// AuditService flags ledger entries stuck in pending_settlement past the
// threshold. Findings are reported, never auto-remediated.
type AuditService struct {
	ledgerRepo     repo_interfaces.LedgerRepository
	stuckThreshold time.Duration
	alert          service_interfaces.AlertSink
}

func NewAuditService(
	ledgerRepo repo_interfaces.LedgerRepository,
	stuckThreshold time.Duration,
	alert service_interfaces.AlertSink,
) *AuditService {
	if stuckThreshold <= 0 {
		stuckThreshold = 30 * time.Minute
	}

	return &AuditService{
		ledgerRepo:     ledgerRepo,
		stuckThreshold: stuckThreshold,
		alert:          alert,
	}
}

// Scan is a pure read over the ledger snapshot: it returns the flagged
// entries without mutating or alerting.
func (s *AuditService) Scan(ctx context.Context, now time.Time) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	var flagged []domain.LedgerEntry
	for _, entry := range entries {
		if entry.Status != domain.SettlementStatusPending {
			continue
		}
		if now.Sub(entry.Timestamp) > s.stuckThreshold {
			flagged = append(flagged, entry)
		}
	}

	return flagged, nil
}

// Run scans and pushes one stuck-settlement alert per finding. Driven by an
// external scheduler.
func (s *AuditService) Run(ctx context.Context, now time.Time) error {
	flagged, err := s.Scan(ctx, now)
	if err != nil {
		logger.Error("audit run failed to load ledger", err, nil)
		return err
	}

	if len(flagged) == 0 {
		logger.Info("audit run found no discrepancies", nil)
		return nil
	}

	logger.Info("audit run found stuck settlements", logger.Fields{
		"count": len(flagged),
	})

	for _, entry := range flagged {
		if s.alert == nil {
			continue
		}
		s.alert(ctx, domain.Alert{
			Kind:     domain.AlertKindStuckSettlement,
			SourceID: entry.SourceID,
			Amount:   entry.Amount,
			Elapsed:  now.Sub(entry.Timestamp),
			Detail:   "settlement pending past threshold",
		})
	}

	return nil
}
