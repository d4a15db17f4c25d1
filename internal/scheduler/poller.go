// Package scheduler runs the periodic topology poll: a wall-clock-aligned
// timer that invokes a topology.Pipeline run once a minute, coalescing any
// tick that arrives while the previous run is still in flight instead of
// queuing it up behind a slow poll.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Runner is the subset of *topology.Pipeline the poller depends on, kept
// as an interface so tests can stub a poll without a real DDS or database.
type Runner interface {
	Run(ctx context.Context) error
}

// TopologyPoller drives Runner.Run on a minute boundary.
type TopologyPoller struct {
	runner Runner
	log    *slog.Logger
	period time.Duration

	running chan struct{}
}

// NewTopologyPoller constructs a poller over runner, firing every period
// (one minute by default).
func NewTopologyPoller(runner Runner, log *slog.Logger, period time.Duration) *TopologyPoller {
	if period <= 0 {
		period = time.Minute
	}
	return &TopologyPoller{
		runner:  runner,
		log:     log,
		period:  period,
		running: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled, firing one poll per wall-clock period
// boundary. A poll that outlives the next boundary causes that boundary's
// tick to be dropped rather than queued: the poller never runs two polls
// concurrently.
func (p *TopologyPoller) Run(ctx context.Context) {
	for {
		wait := time.Until(nextBoundary(time.Now(), p.period))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		select {
		case p.running <- struct{}{}:
			go p.poll(ctx)
		default:
			p.log.Warn("topology poll skipped, previous poll still running")
		}
	}
}

func (p *TopologyPoller) poll(ctx context.Context) {
	defer func() { <-p.running }()

	start := time.Now()
	if err := p.runner.Run(ctx); err != nil {
		p.log.Error("topology poll finished with warnings", "error", err, "duration", time.Since(start))
		return
	}
	p.log.Debug("topology poll finished", "duration", time.Since(start))
}

// nextBoundary returns the next instant that is an exact multiple of
// period past the top of the hour containing now.
func nextBoundary(now time.Time, period time.Duration) time.Time {
	hour := now.Truncate(time.Hour)
	elapsed := now.Sub(hour)
	n := elapsed/period + 1
	return hour.Add(n * period)
}
