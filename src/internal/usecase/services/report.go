package services

import (
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/shopspring/decimal"
)

// BuildReport folds a match result into the operator-facing reconciliation
// report. Pure; safe to call from handlers and from scheduled runs.
func BuildReport(result domain.MatchResult, generatedAt time.Time) domain.ReconciliationReport {
	summary := domain.ReconciliationSummary{
		TotalMatched:         len(result.Matched),
		TotalUnmatchedSource: len(result.UnmatchedSource),
		TotalUnmatchedTarget: len(result.UnmatchedTarget),
		TotalSourceVolume:    decimal.Zero,
		TotalTargetVolume:    decimal.Zero,
		TotalPlatformFees:    decimal.Zero,
	}

	var anomalous []domain.MatchedPair
	for _, pair := range result.Matched {
		summary.TotalSourceVolume = summary.TotalSourceVolume.Add(pair.SourceAmount)
		summary.TotalTargetVolume = summary.TotalTargetVolume.Add(pair.TargetAmount)
		summary.TotalPlatformFees = summary.TotalPlatformFees.Add(pair.PlatformFee)
		if pair.PlatformFee.IsNegative() {
			anomalous = append(anomalous, pair)
		}
	}

	return domain.ReconciliationReport{
		Summary:         summary,
		Matched:         result.Matched,
		UnmatchedSource: result.UnmatchedSource,
		UnmatchedTarget: result.UnmatchedTarget,
		AnomalousPairs:  anomalous,
		GeneratedAt:     generatedAt,
	}
}
