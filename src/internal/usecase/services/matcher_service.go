package services

import (
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	reasonNoMatchingPayout  = "No matching payout found"
	reasonNoMatchingCapture = "No matching capture found"
)

// MatchStrategy picks the index of the target transaction to pair with the
// given source, or -1 when no pool entry satisfies the match predicate.
// expectedPayout is what the payout rail should have sent for this capture;
// candidates are compared against it, not the raw capture amount. Which
// candidate wins when several satisfy it is a product decision, so the
// strategy is injectable.
type MatchStrategy func(source domain.SourceTransaction, expectedPayout decimal.Decimal, pool []domain.TargetTransaction, tolerance decimal.Decimal) int

// FirstFound returns the earliest pool entry whose destination address
// matches the source and whose amount is within tolerance of the expected
// payout. This mirrors the behavior finance signed off on for daily runs.
func FirstFound(source domain.SourceTransaction, expectedPayout decimal.Decimal, pool []domain.TargetTransaction, tolerance decimal.Decimal) int {
	for i, candidate := range pool {
		if candidate.DestinationAddress != source.CounterpartyAddress {
			continue
		}
		if amountsMatch(expectedPayout, candidate.Amount, tolerance) {
			return i
		}
	}
	return -1
}

// ClosestAmount prefers the candidate whose amount is nearest the expected
// payout; earlier pool position breaks exact ties.
func ClosestAmount(source domain.SourceTransaction, expectedPayout decimal.Decimal, pool []domain.TargetTransaction, tolerance decimal.Decimal) int {
	best := -1
	var bestDiff decimal.Decimal

	for i, candidate := range pool {
		if candidate.DestinationAddress != source.CounterpartyAddress {
			continue
		}
		diff := expectedPayout.Sub(candidate.Amount).Abs()
		if diff.GreaterThan(tolerance) {
			continue
		}
		if best == -1 || diff.LessThan(bestDiff) {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// MatcherService pairs capture-system transactions with payout-system
// transactions. A capture of X is expected to produce a payout of
// X * payoutRate; the difference between the capture and the actual payout
// is the platform fee.
type MatcherService struct {
	tolerance  decimal.Decimal
	payoutRate decimal.Decimal
	strategy   MatchStrategy
}

func NewMatcherService(tolerance, payoutRate decimal.Decimal, strategy MatchStrategy) *MatcherService {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = decimal.RequireFromString("0.01")
	}
	if payoutRate.LessThanOrEqual(decimal.Zero) || payoutRate.GreaterThan(decimal.NewFromInt(1)) {
		payoutRate = decimal.RequireFromString("0.90")
	}
	if strategy == nil {
		strategy = FirstFound
	}

	return &MatcherService{tolerance: tolerance, payoutRate: payoutRate, strategy: strategy}
}

// Match walks the source batch in input order, claiming one target per
// annotated source from a shrinking candidate pool. Sources without a
// counterparty address expected no payout and are skipped entirely. The
// result is computed only; persisting matched pairs is the caller's job.
func (s *MatcherService) Match(sourceBatch []domain.SourceTransaction, targetBatch []domain.TargetTransaction) domain.MatchResult {
	pool := make([]domain.TargetTransaction, len(targetBatch))
	copy(pool, targetBatch)

	result := domain.MatchResult{
		Matched:         []domain.MatchedPair{},
		UnmatchedSource: []domain.UnmatchedSource{},
		UnmatchedTarget: []domain.UnmatchedTarget{},
	}

	for _, source := range sourceBatch {
		if source.CounterpartyAddress == "" {
			continue
		}

		expectedPayout := source.AmountMajor().Mul(s.payoutRate).Round(2)

		idx := s.strategy(source, expectedPayout, pool, s.tolerance)
		if idx < 0 {
			result.UnmatchedSource = append(result.UnmatchedSource, domain.UnmatchedSource{
				SourceID:            source.ID,
				Amount:              source.AmountMajor(),
				CounterpartyAddress: source.CounterpartyAddress,
				Reason:              reasonNoMatchingPayout,
			})
			continue
		}

		target := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)

		pair := domain.MatchedPair{
			SourceID:            source.ID,
			TargetID:            target.ID,
			SourceAmount:        source.AmountMajor(),
			TargetAmount:        target.Amount,
			PlatformFee:         source.AmountMajor().Sub(target.Amount),
			CounterpartyAddress: source.CounterpartyAddress,
			Timestamp:           source.CreatedAt,
		}

		// Negative fees are anomalous but still recorded; the report
		// surfaces them for review.
		if pair.PlatformFee.IsNegative() {
			logger.Info("matcher paired transactions with negative platform fee", logger.Fields{
				"sourceId":    pair.SourceID,
				"targetId":    pair.TargetID,
				"platformFee": pair.PlatformFee,
			})
		}

		result.Matched = append(result.Matched, pair)
	}

	for _, remaining := range pool {
		result.UnmatchedTarget = append(result.UnmatchedTarget, domain.UnmatchedTarget{
			TargetID:           remaining.ID,
			Amount:             remaining.Amount,
			DestinationAddress: remaining.DestinationAddress,
			Reason:             reasonNoMatchingCapture,
		})
	}

	return result
}

func amountsMatch(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
