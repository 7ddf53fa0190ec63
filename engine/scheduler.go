package engine

import (
	"context"
	"errors"
	"time"
)

// Scheduler marks tick boundaries. Abstracting the wall clock lets tests and
// simulations drive the loop without real time passing.
type Scheduler interface {
	// WaitForNextTick blocks until the next tick boundary, or until ctx is
	// done, in which case it returns the context's error.
	WaitForNextTick(ctx context.Context) error
}

// IntervalScheduler ticks at a fixed wall-clock interval.
type IntervalScheduler struct {
	interval time.Duration
}

func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{interval: interval}
}

func (s *IntervalScheduler) WaitForNextTick(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrSchedulerStopped reports that a scheduler has been shut down; the run
// loop treats it as a clean stop.
var ErrSchedulerStopped = errors.New("engine: scheduler stopped")

// ManualScheduler ticks when Tick is called. Deterministic replacement for
// the interval scheduler in tests and simulations.
type ManualScheduler struct {
	ticks chan struct{}
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{ticks: make(chan struct{})}
}

// Tick releases one pending WaitForNextTick call.
func (s *ManualScheduler) Tick() {
	s.ticks <- struct{}{}
}

// Stop ends the loop: pending and future waits return ErrSchedulerStopped.
func (s *ManualScheduler) Stop() {
	close(s.ticks)
}

func (s *ManualScheduler) WaitForNextTick(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-s.ticks:
		if !ok {
			return ErrSchedulerStopped
		}
		return nil
	}
}
