package capture_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDevice tracks how many streams are open at once.
type fakeDevice struct {
	mu        sync.Mutex
	openErr   map[capture.Facing]error
	active    int
	maxActive int
	opened    []capture.Facing
	streams   []*fakeStream
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{openErr: map[capture.Facing]error{}}
}

func (d *fakeDevice) Open(_ context.Context, facing capture.Facing) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.openErr[facing]; err != nil {
		return nil, err
	}
	d.active++
	if d.active > d.maxActive {
		d.maxActive = d.active
	}
	d.opened = append(d.opened, facing)
	s := &fakeStream{device: d, facing: facing}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) activeStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

type fakeStream struct {
	device  *fakeDevice
	facing  capture.Facing
	stopped bool
}

func (s *fakeStream) Facing() capture.Facing { return s.facing }

func (s *fakeStream) Snapshot() ([]byte, error) {
	return []byte("still-" + string(s.facing)), nil
}

func (s *fakeStream) Record() (capture.Recorder, error) {
	return &fakeRecorder{facing: s.facing}, nil
}

func (s *fakeStream) Stop() {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		s.device.active--
	}
}

type fakeRecorder struct {
	facing capture.Facing
}

func (r *fakeRecorder) Stop(context.Context) ([]byte, error) {
	return []byte("clip-" + string(r.facing)), nil
}

func (r *fakeRecorder) ContentType() string { return domain.ContentTypeWebM }

func newLiveAdapter(t *testing.T, clock clockwork.Clock) (*capture.Adapter, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	a := capture.NewAdapter(dev, capture.WithClock(clock))
	require.NoError(t, a.Acquire(context.Background(), capture.FacingBack))
	require.Equal(t, capture.Live, a.State())
	t.Cleanup(a.Close)
	return a, dev
}

func TestAdapter_AcquireFailureStaysIdle(t *testing.T) {
	dev := newFakeDevice()
	dev.openErr[capture.FacingBack] = capture.ErrPermissionDenied
	a := capture.NewAdapter(dev)

	err := a.Acquire(context.Background(), capture.FacingBack)

	require.Error(t, err)
	assert.True(t, errors.IsAcquisition(err))
	assert.ErrorIs(t, err, capture.ErrPermissionDenied)
	assert.Equal(t, capture.Idle, a.State())

	_, err = a.CapturePhoto()
	assert.ErrorIs(t, err, capture.ErrNotLive)
}

func TestAdapter_AcquireTwiceIsRejected(t *testing.T) {
	a, dev := newLiveAdapter(t, clockwork.NewFakeClock())

	err := a.Acquire(context.Background(), capture.FacingFront)

	assert.True(t, errors.IsAcquisition(err))
	assert.Equal(t, 1, dev.activeStreams())
}

func TestAdapter_CapturePhoto(t *testing.T) {
	a, _ := newLiveAdapter(t, clockwork.NewFakeClock())

	media, err := a.CapturePhoto()

	require.NoError(t, err)
	assert.Equal(t, domain.MediaPhoto, media.Kind)
	assert.Equal(t, domain.ContentTypeJPEG, media.ContentType)
	assert.Equal(t, []byte("still-back"), media.Data)
	assert.Equal(t, capture.Live, a.State())
}

func TestAdapter_RecordCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, _ := newLiveAdapter(t, clock)

	require.NoError(t, a.StartRecording())
	assert.Equal(t, capture.Recording, a.State())

	_, err := a.CapturePhoto()
	assert.ErrorIs(t, err, capture.ErrNotLive)

	clock.Advance(3 * time.Second)
	clip, err := a.StopRecording(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.MediaVideo, clip.Kind)
	assert.Equal(t, 3*time.Second, clip.Duration)
	assert.Equal(t, []byte("clip-back"), clip.Data)
	assert.Equal(t, capture.Live, a.State())

	_, err = a.StopRecording(context.Background())
	assert.ErrorIs(t, err, capture.ErrNotRecording)
}

func TestAdapter_SwitchFacingTearsDownFirst(t *testing.T) {
	a, dev := newLiveAdapter(t, clockwork.NewFakeClock())

	require.NoError(t, a.SwitchFacing(context.Background()))

	assert.Equal(t, capture.FacingFront, a.Facing())
	assert.Equal(t, capture.Live, a.State())
	assert.Equal(t, 1, dev.maxActive, "two device streams were active at once")
	assert.Equal(t, []capture.Facing{capture.FacingBack, capture.FacingFront}, dev.opened)
	assert.True(t, dev.streams[0].stopped)
}

func TestAdapter_SwitchFacingFailureLeavesIdle(t *testing.T) {
	a, dev := newLiveAdapter(t, clockwork.NewFakeClock())
	dev.openErr[capture.FacingFront] = capture.ErrDeviceBusy

	err := a.SwitchFacing(context.Background())

	assert.True(t, errors.IsAcquisition(err))
	assert.Equal(t, capture.Idle, a.State())
	assert.Equal(t, 0, dev.activeStreams())
}

func TestAdapter_SwitchWhileRecordingIsRejected(t *testing.T) {
	a, dev := newLiveAdapter(t, clockwork.NewFakeClock())
	require.NoError(t, a.StartRecording())

	err := a.SwitchFacing(context.Background())

	assert.Error(t, err)
	assert.Equal(t, capture.Recording, a.State())
	assert.Equal(t, 1, dev.activeStreams())
}

func TestAdapter_CloseStopsTracks(t *testing.T) {
	dev := newFakeDevice()
	a := capture.NewAdapter(dev)
	require.NoError(t, a.Acquire(context.Background(), capture.FacingFront))
	require.NoError(t, a.StartRecording())

	a.Close()

	assert.Equal(t, capture.Idle, a.State())
	assert.Equal(t, 0, dev.activeStreams())
}
