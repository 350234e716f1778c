package services_test

import (
	"testing"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

func newMatcher() *services.MatcherService {
	return services.NewMatcherService(
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.90"),
		services.FirstFound,
	)
}

// A matcher for rails that pay out the full captured amount.
func newFullRateMatcher() *services.MatcherService {
	return services.NewMatcherService(
		decimal.RequireFromString("0.01"),
		decimal.NewFromInt(1),
		services.FirstFound,
	)
}

func TestMatcherEndToEndScenario(t *testing.T) {
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 100000, CounterpartyAddress: "0xA", CreatedAt: time.Now()},
	}
	target := []domain.TargetTransaction{
		{ID: "t1", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.00")},
	}

	result := newMatcher().Match(source, target)

	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched pair, got %d", len(result.Matched))
	}
	if len(result.UnmatchedSource) != 0 || len(result.UnmatchedTarget) != 0 {
		t.Fatalf("expected empty unmatched lists, got %d source / %d target",
			len(result.UnmatchedSource), len(result.UnmatchedTarget))
	}

	pair := result.Matched[0]
	if !pair.SourceAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected source amount 1000, got %s", pair.SourceAmount)
	}
	if !pair.TargetAmount.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected target amount 900, got %s", pair.TargetAmount)
	}
	if !pair.PlatformFee.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected platform fee 100, got %s", pair.PlatformFee)
	}
}

func TestMatcherFeeIsExactlyTheDifference(t *testing.T) {
	// 1234.57 captured, expected payout 1111.11; actual payout one cent over.
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 123457, CounterpartyAddress: "0xA"},
	}
	target := []domain.TargetTransaction{
		{ID: "t1", DestinationAddress: "0xA", Amount: decimal.RequireFromString("1111.12")},
	}

	result := newMatcher().Match(source, target)
	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched pair, got %d", len(result.Matched))
	}

	pair := result.Matched[0]
	diff := pair.SourceAmount.Sub(pair.TargetAmount).Sub(pair.PlatformFee)
	if !diff.IsZero() {
		t.Errorf("fee should be exactly sourceAmount - targetAmount, off by %s", diff)
	}
}

func TestMatcherSkipsSourcesWithoutCounterparty(t *testing.T) {
	source := []domain.SourceTransaction{
		{ID: "direct-sale", Amount: 50000},
	}

	result := newMatcher().Match(source, nil)

	if len(result.Matched) != 0 {
		t.Errorf("expected no matches, got %d", len(result.Matched))
	}
	if len(result.UnmatchedSource) != 0 {
		t.Errorf("unannotated source must not be reported as unmatched, got %d", len(result.UnmatchedSource))
	}
}

func TestMatcherToleranceBoundary(t *testing.T) {
	// 1000 captured at a 90% rate: the expected payout is 900.
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 100000, CounterpartyAddress: "0xA"},
	}

	within := []domain.TargetTransaction{
		{ID: "t1", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.01")},
	}
	result := newMatcher().Match(source, within)
	if len(result.Matched) != 1 {
		t.Fatalf("payout 0.01 off the expected amount should match, got %d matches", len(result.Matched))
	}

	outside := []domain.TargetTransaction{
		{ID: "t2", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.02")},
	}
	result = newMatcher().Match(source, outside)
	if len(result.Matched) != 0 {
		t.Fatalf("payout 0.02 off the expected amount should not match, got %d matches", len(result.Matched))
	}
	if len(result.UnmatchedSource) != 1 || len(result.UnmatchedTarget) != 1 {
		t.Errorf("expected 1 unmatched on each side, got %d source / %d target",
			len(result.UnmatchedSource), len(result.UnmatchedTarget))
	}
}

func TestMatcherFirstFoundClaimsEarliestCandidate(t *testing.T) {
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 100000, CounterpartyAddress: "0xA"},
	}
	target := []domain.TargetTransaction{
		{ID: "t-early", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.00")},
		{ID: "t-late", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.00")},
	}

	result := newMatcher().Match(source, target)

	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched pair, got %d", len(result.Matched))
	}
	if result.Matched[0].TargetID != "t-early" {
		t.Errorf("first-found must claim the earliest pool entry, got %s", result.Matched[0].TargetID)
	}
	if len(result.UnmatchedTarget) != 1 || result.UnmatchedTarget[0].TargetID != "t-late" {
		t.Errorf("the later candidate should remain unmatched")
	}
}

func TestMatcherClosestAmountStrategy(t *testing.T) {
	matcher := services.NewMatcherService(
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.90"),
		services.ClosestAmount,
	)

	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 100000, CounterpartyAddress: "0xA"},
	}
	target := []domain.TargetTransaction{
		{ID: "t-off", DestinationAddress: "0xA", Amount: decimal.RequireFromString("899.99")},
		{ID: "t-exact", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.00")},
	}

	result := matcher.Match(source, target)

	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched pair, got %d", len(result.Matched))
	}
	if result.Matched[0].TargetID != "t-exact" {
		t.Errorf("closest-amount must prefer the exact candidate, got %s", result.Matched[0].TargetID)
	}
}

func TestMatcherRecordsNegativeFee(t *testing.T) {
	// On a full-rate rail a payout one cent over the capture still matches
	// within tolerance; the fee comes out negative.
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 90000, CounterpartyAddress: "0xA"},
	}
	target := []domain.TargetTransaction{
		{ID: "t1", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.01")},
	}

	result := newFullRateMatcher().Match(source, target)

	if len(result.Matched) != 1 {
		t.Fatalf("negative-fee pair must still be recorded, got %d matches", len(result.Matched))
	}
	if !result.Matched[0].PlatformFee.IsNegative() {
		t.Errorf("expected negative platform fee, got %s", result.Matched[0].PlatformFee)
	}
}

func TestMatcherEachTargetClaimedOnce(t *testing.T) {
	source := []domain.SourceTransaction{
		{ID: "p1", Amount: 100000, CounterpartyAddress: "0xA"},
		{ID: "p2", Amount: 100000, CounterpartyAddress: "0xA"},
	}
	target := []domain.TargetTransaction{
		{ID: "t1", DestinationAddress: "0xA", Amount: decimal.RequireFromString("900.00")},
	}

	result := newMatcher().Match(source, target)

	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched pair, got %d", len(result.Matched))
	}
	if len(result.UnmatchedSource) != 1 || result.UnmatchedSource[0].SourceID != "p2" {
		t.Errorf("second source must be unmatched once the pool entry is claimed")
	}
}
