package capture_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGesture_HoldRecordsClip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, _ := newLiveAdapter(t, clock)

	require.NoError(t, a.PressStart())
	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, capture.Live, a.State())

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return a.State() == capture.Recording }, time.Second, time.Millisecond)

	clock.Advance(200 * time.Millisecond)
	media, err := a.PressEnd(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.MediaVideo, media.Kind)
	assert.Equal(t, 200*time.Millisecond, media.Duration)
	assert.Equal(t, capture.Live, a.State())
}

func TestGesture_ShortPressTakesPhoto(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, _ := newLiveAdapter(t, clock)

	require.NoError(t, a.PressStart())
	clock.Advance(300 * time.Millisecond)
	media, err := a.PressEnd(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.MediaPhoto, media.Kind)

	// the disarmed timer never starts a recording
	clock.Advance(time.Second)
	assert.Never(t, func() bool { return a.State() == capture.Recording }, 20*time.Millisecond, time.Millisecond)
}

func TestGesture_ReleaseWithoutPress(t *testing.T) {
	a, _ := newLiveAdapter(t, clockwork.NewFakeClock())

	_, err := a.PressEnd(context.Background())

	assert.ErrorIs(t, err, capture.ErrNotPressed)
}

func TestGesture_PressRequiresLive(t *testing.T) {
	a := capture.NewAdapter(newFakeDevice())

	assert.ErrorIs(t, a.PressStart(), capture.ErrNotLive)
}

func TestGesture_CustomThreshold(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dev := newFakeDevice()
	a := capture.NewAdapter(dev, capture.WithClock(clock), capture.WithHoldThreshold(time.Second))
	require.NoError(t, a.Acquire(context.Background(), capture.FacingFront))
	t.Cleanup(a.Close)

	require.NoError(t, a.PressStart())
	clock.Advance(700 * time.Millisecond)
	media, err := a.PressEnd(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.MediaPhoto, media.Kind)
}
