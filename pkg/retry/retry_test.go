package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries uint64) Policy {
	return Policy{Retries: retries, Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1.5}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithPolicy(fastPolicy(3)), WithLogger(logger.Nop(), "flaky"))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("down")
	}, WithPolicy(fastPolicy(2)))

	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errors.New("bad credentials"))
	}, WithPolicy(fastPolicy(5)))

	assert.EqualError(t, err, "bad credentials")
	assert.Equal(t, 1, calls)
}

func TestDo_WaitsOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, func(context.Context) error {
			calls <- struct{}{}
			if len(calls) < 2 {
				return errors.New("not yet")
			}
			return nil
		}, WithPolicy(Policy{Retries: 1, Initial: time.Minute, Max: time.Minute, Multiplier: 1}), WithClock(clock))
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, calls, 1)

	// backoff jitter can stretch the wait up to 1.5x
	clock.Advance(2 * time.Minute)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("retry did not resume after the clock advanced")
	}
	assert.Len(t, calls, 2)
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return errors.New("down") }, WithPolicy(fastPolicy(10)))

	assert.Error(t, err)
}
