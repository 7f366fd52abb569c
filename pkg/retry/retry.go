// Package retry repeats infrastructure checks, such as the startup database
// ping, with exponential backoff. User actions are never retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/pkg/logger"
)

type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries    uint64
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultPolicy() Policy {
	return Policy{
		Retries:    3,
		Initial:    500 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 1.5,
	}
}

type settings struct {
	policy Policy
	clock  clockwork.Clock
	logger logger.Logger
	name   string
}

type Option func(*settings)

func WithPolicy(p Policy) Option {
	return func(s *settings) { s.policy = p }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger reports every failed attempt under the given operation name.
func WithLogger(l logger.Logger, name string) Option {
	return func(s *settings) {
		s.logger = l
		s.name = name
	}
}

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, runs out of
// retries or ctx is done. The last error is returned.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	s := settings{policy: DefaultPolicy(), clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&s)
	}

	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.policy.Initial),
		backoff.WithMaxInterval(s.policy.Max),
		backoff.WithMultiplier(s.policy.Multiplier),
		backoff.WithMaxElapsedTime(0),
		backoff.WithClockProvider(s.clock),
	)
	b := backoff.WithContext(backoff.WithMaxRetries(bo, s.policy.Retries), ctx)

	var notify backoff.Notify
	if s.logger != nil {
		notify = func(err error, next time.Duration) {
			s.logger.Warn("Attempt failed, retrying",
				"operation", s.name,
				"error", err,
				"next_attempt_in", next.Round(time.Millisecond).String(),
			)
		}
	}

	return backoff.RetryNotifyWithTimer(func() error { return op(ctx) }, b, notify, &clockTimer{clock: s.clock})
}

// clockTimer drives backoff waits from a clockwork clock.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
