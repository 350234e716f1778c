package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/resilience"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

// RetryQueue holds failed dispatch attempts and re-executes them through the
// circuit breaker on an exponential backoff schedule. After maxRetries the
// item is dropped and a permanent-failure alert is emitted exactly once.
type RetryQueue struct {
	mu         sync.Mutex
	items      []domain.RetryItem
	maxRetries int
	baseDelay  time.Duration
	breaker    *resilience.CircuitBreaker
	alert      service_interfaces.AlertSink
}

func NewRetryQueue(
	maxRetries int,
	baseDelay time.Duration,
	breaker *resilience.CircuitBreaker,
	alert service_interfaces.AlertSink,
) *RetryQueue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}

	return &RetryQueue{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		breaker:    breaker,
		alert:      alert,
	}
}

func (q *RetryQueue) Enqueue(payload domain.DispatchRequest) {
	now := time.Now().UTC()

	q.mu.Lock()
	q.items = append(q.items, domain.RetryItem{
		Payload:        payload,
		RetryCount:     0,
		FirstAttemptAt: now,
		NextRetryAt:    now.Add(q.baseDelay),
	})
	pending := len(q.items)
	q.mu.Unlock()

	logger.Info("retry queue item enqueued", logger.Fields{
		"sourceId": payload.SourceID,
		"pending":  pending,
	})
}

// Drain dispatches every item whose retry time has arrived. The queue mutex
// is held for the whole pass, so drains never overlap and an item is never
// double-dispatched. Ready items are partitioned out of the backing slice
// first; survivors are rebuilt afterward, so removal never interferes with
// iteration.
func (q *RetryQueue) Drain(ctx context.Context, now time.Time, dispatch service_interfaces.DispatchFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var notReady, ready []domain.RetryItem
	for _, item := range q.items {
		if item.NextRetryAt.After(now) {
			notReady = append(notReady, item)
			continue
		}
		ready = append(ready, item)
	}

	survivors := notReady
	circuitRejected := false

	for _, item := range ready {
		if circuitRejected {
			// The breaker already refused this pass; reschedule the rest
			// without burning an attempt.
			item.NextRetryAt = q.rescheduleAt(now, item.RetryCount)
			survivors = append(survivors, item)
			continue
		}

		err := q.breaker.Execute(ctx, func(ctx context.Context) error {
			return dispatch(ctx, item.Payload)
		})
		if err == nil {
			logger.Info("retry queue dispatch succeeded", logger.Fields{
				"sourceId": item.Payload.SourceID,
				"attempts": item.RetryCount + 1,
			})
			continue
		}

		if errors.Is(err, resilience.ErrCircuitOpen) {
			// Fail-fast rejection is transient: keep the item, keep its
			// retry budget intact.
			circuitRejected = true
			item.NextRetryAt = q.rescheduleAt(now, item.RetryCount)
			survivors = append(survivors, item)
			logger.Info("retry queue deferred by open circuit", logger.Fields{
				"sourceId": item.Payload.SourceID,
			})
			continue
		}

		item.RetryCount++
		if item.RetryCount >= q.maxRetries {
			logger.Error("retry queue exhausted retries", err, logger.Fields{
				"sourceId":   item.Payload.SourceID,
				"retryCount": item.RetryCount,
			})
			if q.alert != nil {
				q.alert(ctx, domain.Alert{
					Kind:     domain.AlertKindPermanentDispatchFailure,
					SourceID: item.Payload.SourceID,
					Address:  item.Payload.DestinationAddress,
					Amount:   item.Payload.Amount,
					Elapsed:  now.Sub(item.FirstAttemptAt),
					Detail:   err.Error(),
				})
			}
			continue
		}

		item.NextRetryAt = q.rescheduleAt(now, item.RetryCount)
		survivors = append(survivors, item)
		logger.Info("retry queue dispatch failed, rescheduled", logger.Fields{
			"sourceId":    item.Payload.SourceID,
			"retryCount":  item.RetryCount,
			"nextRetryAt": item.NextRetryAt,
		})
	}

	q.items = survivors
}

func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *RetryQueue) rescheduleAt(now time.Time, retryCount int) time.Time {
	return now.Add(q.baseDelay * (1 << retryCount))
}
