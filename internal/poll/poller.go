// Package poll runs a function on a fixed interval until its context is
// cancelled. It replaces ad-hoc ticker loops so intervals, backoff and
// cancellation live in one place.
package poll

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BackoffFunc maps a count of consecutive failures to the delay before the
// next attempt. It is consulted only while the handler keeps failing.
type BackoffFunc func(failures int) time.Duration

// LinearBackoff grows the delay by step per consecutive failure, capped at
// max.
func LinearBackoff(step, max time.Duration) BackoffFunc {
	return func(failures int) time.Duration {
		d := step * time.Duration(failures)
		if d > max {
			return max
		}
		return d
	}
}

// Poller invokes a handler on an interval. Handler errors are logged and the
// loop continues; polling is a best-effort background concern that self-heals
// on the next cycle.
type Poller struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *zap.Logger
	backoff  BackoffFunc
}

// Option customizes a Poller.
type Option func(*Poller)

// WithBackoff delays retries after consecutive handler failures instead of
// hammering a broken dependency at the fixed interval.
func WithBackoff(b BackoffFunc) Option {
	return func(p *Poller) { p.backoff = b }
}

// New creates a poller. The name only labels log entries.
func New(name string, interval time.Duration, fn func(ctx context.Context) error, logger *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	failures := 0

	for {
		if err := p.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			p.logger.Warn("poll failed", zap.String("poller", p.name), zap.Int("failures", failures), zap.Error(err))
		} else {
			failures = 0
		}

		delay := p.interval
		if failures > 0 && p.backoff != nil {
			delay = p.backoff(failures)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
