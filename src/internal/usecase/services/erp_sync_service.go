package services

import (
	"context"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/repo_interfaces"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

// ERPSyncService pushes unsynced ledger entries into the external accounting
// system through the injected journal-entry port. A failed entry stays
// unsynced and is retried on the next run; no alert is raised.
type ERPSyncService struct {
	ledgerRepo       repo_interfaces.LedgerRepository
	postJournalEntry service_interfaces.JournalEntryFunc
}

func NewERPSyncService(
	ledgerRepo repo_interfaces.LedgerRepository,
	postJournalEntry service_interfaces.JournalEntryFunc,
) *ERPSyncService {
	return &ERPSyncService{
		ledgerRepo:       ledgerRepo,
		postJournalEntry: postJournalEntry,
	}
}

// Sync returns the number of entries successfully posted.
func (s *ERPSyncService) Sync(ctx context.Context) (int, error) {
	entries, err := s.ledgerRepo.Load(ctx)
	if err != nil {
		return 0, err
	}

	pending := 0
	synced := 0
	for _, entry := range entries {
		if entry.SyncedToExternalLedger {
			continue
		}
		pending++

		if err := s.postJournalEntry(ctx, entry); err != nil {
			logger.Error("erp sync failed for entry", err, logger.Fields{
				"sourceId": entry.SourceID,
			})
			continue
		}

		if err := s.ledgerRepo.MarkSynced(ctx, entry.SourceID); err != nil {
			logger.Error("erp sync posted but mark synced failed", err, logger.Fields{
				"sourceId": entry.SourceID,
			})
			continue
		}
		synced++
	}

	logger.Info("erp sync run finished", logger.Fields{
		"pending": pending,
		"synced":  synced,
	})

	return synced, nil
}
