package repo_interfaces

import (
	"context"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

// LedgerRepository is the single source of truth for settlement state.
// Record suppresses duplicate source IDs (logged, nil error); Find returns
// domain.ErrRecordNotFound for unknown source IDs; Load returns the full
// snapshot in insertion order; MarkSynced and UpdateStatus are the only
// mutations after creation.
type LedgerRepository interface {
	Record(ctx context.Context, entry domain.LedgerEntry) error
	Find(ctx context.Context, sourceID string) (domain.LedgerEntry, error)
	Load(ctx context.Context) ([]domain.LedgerEntry, error)
	MarkSynced(ctx context.Context, sourceID string) error
	UpdateStatus(ctx context.Context, sourceID string, status domain.SettlementStatus) error
}
