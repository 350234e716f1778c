package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending_settlement"
	SettlementStatusCompleted SettlementStatus = "completed"
	SettlementStatusFailed    SettlementStatus = "failed"
)

// LedgerEntry links a captured payment to its downstream payout. Entries are
// append-only; only the status and sync flag change after creation.
type LedgerEntry struct {
	SourceID               string
	TargetID               *string
	Amount                 decimal.Decimal
	Status                 SettlementStatus
	SyncedToExternalLedger bool
	Timestamp              time.Time
}
