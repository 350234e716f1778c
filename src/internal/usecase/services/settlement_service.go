package services

import (
	"context"
	"errors"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/repo_interfaces"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/resilience"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

// SettlementService is the capture-to-payout trigger path. A confirmed
// capture produces a pending ledger entry and an immediate dispatch attempt;
// any dispatch failure lands in the retry queue instead of surfacing to the
// webhook caller.
type SettlementService struct {
	ledgerRepo repo_interfaces.LedgerRepository
	retryQueue service_interfaces.RetryQueue
	breaker    *resilience.CircuitBreaker
	dispatch   service_interfaces.DispatchFunc
	payoutRate decimal.Decimal
	chain      string
}

func NewSettlementService(
	ledgerRepo repo_interfaces.LedgerRepository,
	retryQueue service_interfaces.RetryQueue,
	breaker *resilience.CircuitBreaker,
	dispatch service_interfaces.DispatchFunc,
	payoutRate decimal.Decimal,
	chain string,
) *SettlementService {
	if payoutRate.LessThanOrEqual(decimal.Zero) || payoutRate.GreaterThan(decimal.NewFromInt(1)) {
		payoutRate = decimal.RequireFromString("0.90")
	}

	return &SettlementService{
		ledgerRepo: ledgerRepo,
		retryQueue: retryQueue,
		breaker:    breaker,
		dispatch:   dispatch,
		payoutRate: payoutRate,
		chain:      chain,
	}
}

func (s *SettlementService) HandleCaptureSucceeded(ctx context.Context, capture domain.SourceTransaction) error {
	if capture.CounterpartyAddress == "" {
		logger.Info("settlement skipped capture without counterparty address", logger.Fields{
			"sourceId": capture.ID,
		})
		return nil
	}

	// Capture systems redeliver events until acknowledged. A ledger entry
	// for this capture means a payout was already dispatched (or is in the
	// retry queue); only a failed entry gets another attempt.
	existing, err := s.ledgerRepo.Find(ctx, capture.ID)
	if err == nil {
		if existing.Status != domain.SettlementStatusFailed {
			logger.Info("settlement ignored redelivered capture event", logger.Fields{
				"sourceId": capture.ID,
				"status":   existing.Status,
			})
			return nil
		}
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return err
	}

	captureAmount := capture.AmountMajor()
	payoutAmount := captureAmount.Mul(s.payoutRate).Round(2)

	timestamp := capture.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	// Record before dispatching so a crash between the two leaves a pending
	// entry for the auditor rather than an untracked payout.
	if err := s.ledgerRepo.Record(ctx, domain.LedgerEntry{
		SourceID:  capture.ID,
		Amount:    captureAmount,
		Status:    domain.SettlementStatusPending,
		Timestamp: timestamp,
	}); err != nil {
		return err
	}

	request := domain.DispatchRequest{
		SourceID:           capture.ID,
		DestinationAddress: capture.CounterpartyAddress,
		Amount:             payoutAmount,
		Chain:              s.chain,
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.dispatch(ctx, request)
	})
	if err != nil {
		logger.Error("settlement dispatch failed, queued for retry", err, logger.Fields{
			"sourceId": capture.ID,
			"amount":   payoutAmount,
		})
		s.retryQueue.Enqueue(request)
		return nil
	}

	if err := s.ledgerRepo.UpdateStatus(ctx, capture.ID, domain.SettlementStatusCompleted); err != nil {
		logger.Error("settlement completed but status update failed", err, logger.Fields{
			"sourceId": capture.ID,
		})
		return err
	}

	logger.Info("settlement completed", logger.Fields{
		"sourceId": capture.ID,
		"address":  capture.CounterpartyAddress,
		"amount":   payoutAmount,
	})

	return nil
}
