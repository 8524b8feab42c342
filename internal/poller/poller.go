// Package poller is a ticker-driven re-fetch loop with deterministic
// teardown. No jitter, no backpressure: the interval workloads here are a
// couple of cheap badge refreshes.
package poller

import (
	"context"
	"sync"
	"time"
)

type Poller struct {
	interval time.Duration
	fn       func(context.Context)

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(interval time.Duration, fn func(context.Context)) *Poller {
	return &Poller{
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs fn once immediately, then on every tick, until Stop is called
// or ctx is cancelled. Subsequent Start calls are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.fn(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}

// Stop tears the loop down and waits for it to exit. Idempotent; safe to
// call before Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if started {
		<-p.done
	}
}
