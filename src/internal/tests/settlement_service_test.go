package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/memory"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

func capture(id string, amountMinor int64, address string) domain.SourceTransaction {
	return domain.SourceTransaction{
		ID:                  id,
		Amount:              amountMinor,
		CounterpartyAddress: address,
		CreatedAt:           time.Now().UTC(),
	}
}

func newSettlement(repo *memory.LedgerRepository, queue *services.RetryQueue, dispatch *scriptedDispatch) *services.SettlementService {
	return services.NewSettlementService(
		repo,
		queue,
		calmBreaker(),
		dispatch.dispatch,
		decimal.RequireFromString("0.90"),
		"ARB",
	)
}

func TestSettlementSuccessMarksCompleted(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)
	dispatch := &scriptedDispatch{}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("handle capture: %v", err)
	}

	entries, _ := repo.Load(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].Status != domain.SettlementStatusCompleted {
		t.Errorf("expected completed status, got %s", entries[0].Status)
	}
	if !entries[0].Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("ledger should record the captured amount, got %s", entries[0].Amount)
	}

	if dispatch.callCount() != 1 {
		t.Fatalf("expected one dispatch, got %d", dispatch.callCount())
	}
	sent := dispatch.calls[0]
	if !sent.Amount.Equal(decimal.NewFromInt(900)) {
		t.Errorf("payout should be 90%% of the capture, got %s", sent.Amount)
	}
	if sent.DestinationAddress != "0xA" {
		t.Errorf("payout address mismatch: %s", sent.DestinationAddress)
	}
	if queue.Len() != 0 {
		t.Errorf("nothing should be queued on success, len=%d", queue.Len())
	}
}

func TestSettlementFailureQueuesRetryAndStaysPending(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)
	dispatch := &scriptedDispatch{errs: []error{errDownstream}}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("dispatch failure must not surface to the webhook caller, got %v", err)
	}

	entries, _ := repo.Load(ctx)
	if entries[0].Status != domain.SettlementStatusPending {
		t.Errorf("entry must stay pending for the auditor, got %s", entries[0].Status)
	}
	if queue.Len() != 1 {
		t.Fatalf("failed dispatch should be queued for retry, len=%d", queue.Len())
	}
}

func TestSettlementSkipsCaptureWithoutCounterparty(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)
	dispatch := &scriptedDispatch{}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("direct-sale", 50000, "")); err != nil {
		t.Fatalf("handle capture: %v", err)
	}

	entries, _ := repo.Load(ctx)
	if len(entries) != 0 {
		t.Errorf("no ledger entry expected for captures without a payout, got %d", len(entries))
	}
	if dispatch.callCount() != 0 {
		t.Errorf("no dispatch expected, got %d", dispatch.callCount())
	}
}

func TestSettlementRedeliveredEventDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)
	dispatch := &scriptedDispatch{}

	svc := newSettlement(repo, queue, dispatch)
	for i := 0; i < 2; i++ {
		if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	if dispatch.callCount() != 1 {
		t.Fatalf("redelivered event must not dispatch a second payout, got %d calls", dispatch.callCount())
	}
	entries, _ := repo.Load(ctx)
	if len(entries) != 1 {
		t.Errorf("expected one ledger entry, got %d", len(entries))
	}
}

func TestSettlementRedeliveryWhilePendingDoesNotDispatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)

	// First delivery fails and lands in the retry queue.
	dispatch := &scriptedDispatch{errs: []error{errDownstream}}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if dispatch.callCount() != 1 {
		t.Fatalf("pending entry must defer to the retry queue, got %d calls", dispatch.callCount())
	}
	if queue.Len() != 1 {
		t.Errorf("redelivery must not enqueue a second retry item, len=%d", queue.Len())
	}
}

func TestSettlementRetriesEntryMarkedFailed(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Minute, calmBreaker(), recorder.sink)
	dispatch := &scriptedDispatch{}

	if err := repo.Record(ctx, pendingEntry("p1", 0)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.UpdateStatus(ctx, "p1", domain.SettlementStatusFailed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("handle capture: %v", err)
	}

	if dispatch.callCount() != 1 {
		t.Fatalf("a failed entry should get a fresh attempt, got %d calls", dispatch.callCount())
	}
	entry, err := repo.Find(ctx, "p1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Status != domain.SettlementStatusCompleted {
		t.Errorf("expected completed after the fresh attempt, got %s", entry.Status)
	}
}

func TestSettlementRetryEventuallyCompletes(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepository()
	recorder := &alertRecorder{}
	queue := services.NewRetryQueue(3, time.Millisecond, calmBreaker(), recorder.sink)

	// First attempt fails, the retry succeeds.
	dispatch := &scriptedDispatch{errs: []error{errDownstream}}

	svc := newSettlement(repo, queue, dispatch)
	if err := svc.HandleCaptureSucceeded(ctx, capture("p1", 100000, "0xA")); err != nil {
		t.Fatalf("handle capture: %v", err)
	}

	queue.Drain(ctx, farFuture(), dispatch.dispatch)

	if queue.Len() != 0 {
		t.Fatalf("retry should have succeeded, len=%d", queue.Len())
	}
	if dispatch.callCount() != 2 {
		t.Errorf("expected initial attempt plus one retry, got %d", dispatch.callCount())
	}
}
