package framedir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrames(t *testing.T, root string, facing capture.Facing, frames ...string) {
	t.Helper()
	dir := filepath.Join(root, string(facing))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i, f := range frames {
		name := filepath.Join(dir, string(rune('a'+i))+".jpg")
		require.NoError(t, os.WriteFile(name, []byte(f), 0o644))
	}
}

func TestDevice_SnapshotCyclesFrames(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, capture.FacingBack, "f1", "f2")
	require.NoError(t, os.WriteFile(filepath.Join(root, "back", "notes.txt"), []byte("skip"), 0o644))

	s, err := New(root).Open(context.Background(), capture.FacingBack)
	require.NoError(t, err)
	defer s.Stop()

	var got []string
	for i := 0; i < 3; i++ {
		f, err := s.Snapshot()
		require.NoError(t, err)
		got = append(got, string(f))
	}
	assert.Equal(t, []string{"f1", "f2", "f1"}, got)
}

func TestDevice_Unavailable(t *testing.T) {
	root := t.TempDir()

	_, err := New(root).Open(context.Background(), capture.FacingFront)
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "front"), 0o755))
	_, err = New(root).Open(context.Background(), capture.FacingFront)
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)
}

func TestDevice_BusyUntilStopped(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, capture.FacingBack, "b")
	writeFrames(t, root, capture.FacingFront, "f")
	d := New(root)

	s, err := d.Open(context.Background(), capture.FacingBack)
	require.NoError(t, err)

	_, err = d.Open(context.Background(), capture.FacingFront)
	assert.ErrorIs(t, err, capture.ErrDeviceBusy)

	s.Stop()
	s.Stop()

	s2, err := d.Open(context.Background(), capture.FacingFront)
	require.NoError(t, err)
	s2.Stop()
}

func TestDevice_RecordProducesMotionJPEG(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, capture.FacingBack, "A", "B")
	clock := clockwork.NewFakeClock()
	d := New(root, WithClock(clock), WithFrameInterval(50*time.Millisecond))

	s, err := d.Open(context.Background(), capture.FacingBack)
	require.NoError(t, err)
	defer s.Stop()

	rec, err := s.Record()
	require.NoError(t, err)
	_, err = s.Record()
	assert.ErrorIs(t, err, capture.ErrDeviceBusy)

	clip, err := rec.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeMJPEG, rec.ContentType())
	assert.NotEmpty(t, clip)
	assert.Equal(t, byte('A'), clip[0])

	// the stream accepts a new recording once the previous one stopped
	rec2, err := s.Record()
	require.NoError(t, err)
	_, err = rec2.Stop(context.Background())
	require.NoError(t, err)
}

func TestDevice_StopAbandonsRecording(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, root, capture.FacingBack, "A")
	d := New(root, WithClock(clockwork.NewFakeClock()))

	s, err := d.Open(context.Background(), capture.FacingBack)
	require.NoError(t, err)
	_, err = s.Record()
	require.NoError(t, err)

	s.Stop()

	_, err = s.Snapshot()
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)
}

func TestDevice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(t.TempDir()).Open(ctx, capture.FacingBack)

	assert.ErrorIs(t, err, context.Canceled)
}
