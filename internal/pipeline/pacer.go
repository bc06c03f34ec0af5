package pipeline

import (
	"context"
	"sync"
	"time"
)

// enrichmentInterval is the minimum spacing between per-event enrichment
// calls, keeping the pipeline inside the geocoding API's polite request
// rate.
const enrichmentInterval = 200 * time.Millisecond

// Pacer enforces a minimum interval between successive steps of a
// sequential loop. It exists as an interface so the rate contract is
// testable and so tests can run the loop unpaced.
type Pacer interface {
	Wait(ctx context.Context) error
}

// intervalPacer blocks until at least the configured interval has elapsed
// since the previous Wait returned. The first Wait returns immediately.
// Safe for concurrent use; overlapping runs share one rate budget.
type intervalPacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewIntervalPacer creates a Pacer with the given minimum interval.
func NewIntervalPacer(interval time.Duration) Pacer {
	return &intervalPacer{interval: interval}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		remaining := p.interval - time.Since(p.last)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	p.last = time.Now()
	return nil
}

// NoOpPacer never waits (tests, or callers that pace externally).
type NoOpPacer struct{}

func (NoOpPacer) Wait(context.Context) error { return nil }
