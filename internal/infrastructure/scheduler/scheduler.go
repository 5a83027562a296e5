// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = time.Minute

// SessionSweeper closes sessions past their TTL.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), log: log}
}

// AddSessionSweep registers sweeper on spec (standard five-field cron).
func (s *Scheduler) AddSessionSweep(spec string, sweeper SessionSweeper) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := sweeper.SweepExpired(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("session sweep failed")
			return
		}
		if n > 0 {
			s.log.Info().Int64("sessions", n).Msg("expired sessions closed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
