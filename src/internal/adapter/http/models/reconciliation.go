package models

import (
	"errors"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/resilience"
)

// ReconciliationRunRequest carries the two feeds for a reconciliation run.
// The operator tooling pulls the feeds from the rail systems and posts them
// here.
type ReconciliationRunRequest struct {
	Source []domain.SourceTransaction `json:"source"`
	Target []domain.TargetTransaction `json:"target"`
}

func (r ReconciliationRunRequest) Validate() error {
	if len(r.Source) == 0 && len(r.Target) == 0 {
		return errors.New("at least one of source or target must be non-empty")
	}
	return nil
}

// DispatchStatus is the operator view of the outbound payout path.
type DispatchStatus struct {
	Breaker      resilience.BreakerStatus `json:"breaker"`
	RetryBacklog int                      `json:"retryBacklog"`
}
