package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := NewScheduler(time.Hour, func(context.Context) {}, nil)

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should be running after Start")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should be stopped after Stop")
	}
}

func TestScheduler_FiresSweeps(t *testing.T) {
	var sweeps atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(context.Context) {
		sweeps.Add(1)
	}, nil)

	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 sweeps, got %d", sweeps.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduler_SkipsTickWhileSweepInProgress(t *testing.T) {
	var started atomic.Int32
	block := make(chan struct{})

	s := NewScheduler(10*time.Millisecond, func(context.Context) {
		started.Add(1)
		<-block
	}, nil)

	s.Start()

	// Give several ticks the chance to fire while the first sweep blocks.
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	close(block)

	if n := started.Load(); n != 1 {
		t.Errorf("overlapping ticks must be skipped, got %d concurrent sweeps", n)
	}
}

func TestScheduler_StopPreventsFutureSweeps(t *testing.T) {
	var sweeps atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(context.Context) {
		sweeps.Add(1)
	}, nil)

	s.Start()
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	settled := sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	if sweeps.Load() != settled {
		t.Errorf("sweeps fired after Stop: %d -> %d", settled, sweeps.Load())
	}
}
