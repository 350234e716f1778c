package services_test

import (
	"context"
	"sync"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (r *alertRecorder) sink(_ context.Context, alert domain.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func (r *alertRecorder) recorded() []domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

func (r *alertRecorder) countKind(kind domain.AlertKind) int {
	count := 0
	for _, alert := range r.recorded() {
		if alert.Kind == kind {
			count++
		}
	}
	return count
}

type scriptedDispatch struct {
	mu    sync.Mutex
	errs  []error
	calls []domain.DispatchRequest
}

// dispatch pops the next scripted error; once the script runs out every call
// succeeds.
func (d *scriptedDispatch) dispatch(_ context.Context, req domain.DispatchRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, req)
	if len(d.errs) == 0 {
		return nil
	}
	next := d.errs[0]
	d.errs = d.errs[1:]
	return next
}

func (d *scriptedDispatch) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
