package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReconciliationSummary struct {
	TotalMatched         int             `json:"totalMatched"`
	TotalUnmatchedSource int             `json:"totalUnmatchedSource"`
	TotalUnmatchedTarget int             `json:"totalUnmatchedTarget"`
	TotalSourceVolume    decimal.Decimal `json:"totalSourceVolume"`
	TotalTargetVolume    decimal.Decimal `json:"totalTargetVolume"`
	TotalPlatformFees    decimal.Decimal `json:"totalPlatformFees"`
}

// ReconciliationReport is the operator-facing summary of one reconciliation
// run. AnomalousPairs lists matched pairs whose platform fee came out
// negative; they are recorded like any other match but deserve eyes.
type ReconciliationReport struct {
	Summary         ReconciliationSummary `json:"summary"`
	Matched         []MatchedPair         `json:"matched"`
	UnmatchedSource []UnmatchedSource     `json:"unmatchedSource"`
	UnmatchedTarget []UnmatchedTarget     `json:"unmatchedTarget"`
	AnomalousPairs  []MatchedPair         `json:"anomalousPairs,omitempty"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}
