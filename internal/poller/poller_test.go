package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoller_RunsImmediately(t *testing.T) {
	var calls atomic.Int64
	ran := make(chan struct{})

	p := New(time.Hour, func(context.Context) {
		if calls.Add(1) == 1 {
			close(ran)
		}
	})
	p.Start(context.Background())
	defer p.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("fn did not run on start")
	}
}

func TestPoller_Ticks(t *testing.T) {
	var calls atomic.Int64
	p := New(5*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})
	p.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 calls, got %d", calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	p.Stop()
}

func TestPoller_StopWaitsForExit(t *testing.T) {
	var calls atomic.Int64
	p := New(time.Millisecond, func(context.Context) {
		calls.Add(1)
	})
	p.Start(context.Background())

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	p.Stop()

	settled := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != settled {
		t.Error("fn ran after Stop returned")
	}
}

func TestPoller_StopIdempotent(t *testing.T) {
	p := New(time.Millisecond, func(context.Context) {})
	p.Start(context.Background())

	p.Stop()
	p.Stop()
}

func TestPoller_StopBeforeStart(t *testing.T) {
	p := New(time.Millisecond, func(context.Context) {})

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a never-started poller")
	}
}

func TestPoller_ContextCancelStopsLoop(t *testing.T) {
	var calls atomic.Int64
	p := New(time.Millisecond, func(context.Context) {
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	time.Sleep(20 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != settled {
		t.Error("fn ran after context cancellation")
	}
}

func TestPoller_SecondStartIsNoOp(t *testing.T) {
	var calls atomic.Int64
	p := New(time.Hour, func(context.Context) {
		calls.Add(1)
	})
	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 immediate run, got %d", got)
	}
}
