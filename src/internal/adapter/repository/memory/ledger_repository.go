package memory

import (
	"context"
	"sync"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
)

// LedgerRepository keeps the ledger in process memory. Used by tests and by
// file-less local runs; the serialization and duplicate-suppression
// guarantees match the postgres implementation.
type LedgerRepository struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	byID    map[string]int
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{byID: make(map[string]int)}
}

func (r *LedgerRepository) Record(_ context.Context, entry domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[entry.SourceID]; exists {
		logger.Info("ledger repository duplicate source id suppressed", logger.Fields{
			"sourceId": entry.SourceID,
		})
		return nil
	}

	r.byID[entry.SourceID] = len(r.entries)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *LedgerRepository) Find(_ context.Context, sourceID string) (domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, exists := r.byID[sourceID]
	if !exists {
		return domain.LedgerEntry{}, domain.ErrRecordNotFound
	}
	return r.entries[idx], nil
}

func (r *LedgerRepository) Load(_ context.Context) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *LedgerRepository) MarkSynced(_ context.Context, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, exists := r.byID[sourceID]
	if !exists {
		return nil
	}

	r.entries[idx].SyncedToExternalLedger = true
	return nil
}

func (r *LedgerRepository) UpdateStatus(_ context.Context, sourceID string, status domain.SettlementStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, exists := r.byID[sourceID]
	if !exists {
		return domain.ErrRecordNotFound
	}

	r.entries[idx].Status = status
	return nil
}
