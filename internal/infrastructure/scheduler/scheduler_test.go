package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := New(zerolog.Nop())
	if err := s.AddSessionSweep("not a cron spec", &countingSweeper{}); err == nil {
		t.Fatalf("expected invalid spec to be rejected")
	}
}

func TestScheduler_RunsSweep(t *testing.T) {
	s := New(zerolog.Nop())
	sweeper := &countingSweeper{}
	if err := s.AddSessionSweep("@every 10ms", sweeper); err != nil {
		t.Fatalf("AddSessionSweep: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	<-s.Stop().Done()

	if sweeper.calls.Load() == 0 {
		t.Fatalf("expected sweep to run")
	}
}
