package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/logger"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// CircuitBreaker guards calls to a downstream dependency. After
// failureThreshold consecutive failures it opens and rejects calls without
// invoking them until resetTimeout has elapsed, then lets a single probe
// through (half-open). One instance per dependency, shared by all callers.
type CircuitBreaker struct {
	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	failureThreshold    int
	resetTimeout        time.Duration
	openedUntil         time.Time
	now                 func() time.Time
}

func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = time.Minute
	}

	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Execute runs operation through the breaker. The operation itself runs
// outside the lock: a slow call may still be in flight while other callers
// trip or reset the breaker.
func (b *CircuitBreaker) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Before(b.openedUntil) {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
	}
	b.mu.Unlock()

	err := operation(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.consecutiveFailures++
		if b.state == StateHalfOpen || b.consecutiveFailures >= b.failureThreshold {
			b.state = StateOpen
			b.openedUntil = b.now().Add(b.resetTimeout)
			logger.Error("circuit breaker opened", err, logger.Fields{
				"consecutiveFailures": b.consecutiveFailures,
				"openedUntil":         b.openedUntil,
			})
		}
		return err
	}

	b.consecutiveFailures = 0
	b.state = StateClosed
	return nil
}

type BreakerStatus struct {
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	OpenedUntil         *time.Time `json:"openedUntil,omitempty"`
}

func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := BreakerStatus{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
	}
	if b.state == StateOpen {
		until := b.openedUntil
		status.OpenedUntil = &until
	}
	return status
}
