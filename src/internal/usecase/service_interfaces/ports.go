package service_interfaces

import (
	"context"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

// DispatchFunc is the outbound payout port. The engine knows nothing about
// its transport; a non-nil error means the payout was not confirmed sent.
type DispatchFunc func(ctx context.Context, req domain.DispatchRequest) error

// AlertSink receives permanent failures and audit findings. Implementations
// must not block the caller for long; delivery guarantees are theirs.
type AlertSink func(ctx context.Context, alert domain.Alert)

// JournalEntryFunc posts one ledger entry to the external accounting system.
type JournalEntryFunc func(ctx context.Context, entry domain.LedgerEntry) error
