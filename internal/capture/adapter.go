package capture

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
)

// DefaultHoldThreshold is how long the capture control must stay pressed
// before a press turns into a recording.
const DefaultHoldThreshold = 500 * time.Millisecond

type Option func(*Adapter)

func WithClock(c clockwork.Clock) Option {
	return func(a *Adapter) { a.clock = c }
}

func WithHoldThreshold(d time.Duration) Option {
	return func(a *Adapter) { a.holdThreshold = d }
}

func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter owns at most one live stream of a Device. All methods are safe for
// concurrent use, but the capture UI is modal so in practice one flow drives it.
type Adapter struct {
	device        Device
	clock         clockwork.Clock
	holdThreshold time.Duration
	logger        logger.Logger

	mu          sync.Mutex
	state       State
	facing      Facing
	stream      Stream
	recorder    Recorder
	recordStart time.Time
	// generation changes on every teardown so a device grant that arrives
	// after Close is released instead of installed.
	generation uint64

	pressed   bool
	pressID   uint64
	holdTimer clockwork.Timer
}

func NewAdapter(device Device, opts ...Option) *Adapter {
	a := &Adapter{
		device:        device,
		clock:         clockwork.NewRealClock(),
		holdThreshold: DefaultHoldThreshold,
		logger:        logger.Nop(),
		state:         Idle,
		facing:        FacingBack,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) Facing() Facing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.facing
}

// Acquire opens the device with the given facing. On failure the adapter stays
// Idle and the error carries the acquisition code; nothing is retried.
func (a *Adapter) Acquire(ctx context.Context, facing Facing) error {
	a.mu.Lock()
	if a.state != Idle {
		a.mu.Unlock()
		return errors.WrapWithCode(ErrDeviceBusy, errors.CodeAcquisition, "camera already acquired")
	}
	return a.acquireLocked(ctx, facing)
}

// acquireLocked is entered with mu held and returns with it released.
func (a *Adapter) acquireLocked(ctx context.Context, facing Facing) error {
	a.state = Acquiring
	a.facing = facing
	gen := a.generation
	a.mu.Unlock()

	stream, err := a.device.Open(ctx, facing)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if a.generation == gen {
			a.state = Idle
		}
		a.logger.Warn("Camera acquisition failed", "facing", facing, "error", err)
		return errors.WrapWithCode(err, errors.CodeAcquisition, "unable to access camera")
	}
	if a.generation != gen {
		stream.Stop()
		return ErrClosed
	}

	a.stream = stream
	a.state = Live
	a.logger.Debug("Camera live", "facing", facing)
	return nil
}

// SwitchFacing stops every track of the current stream and acquires the
// opposite facing. From Idle it acquires the opposite of the last facing.
func (a *Adapter) SwitchFacing(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case Live:
		a.releaseLocked()
	case Idle:
	default:
		a.mu.Unlock()
		return errors.WrapWithCode(ErrDeviceBusy, errors.CodeAcquisition, "cannot switch camera while "+a.state.String())
	}
	return a.acquireLocked(ctx, a.facing.Opposite())
}

// CapturePhoto grabs a still from the live stream.
func (a *Adapter) CapturePhoto() (domain.CapturedMedia, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capturePhotoLocked()
}

func (a *Adapter) capturePhotoLocked() (domain.CapturedMedia, error) {
	if a.state != Live {
		return domain.CapturedMedia{}, ErrNotLive
	}
	data, err := a.stream.Snapshot()
	if err != nil {
		return domain.CapturedMedia{}, errors.WrapWithCode(err, errors.CodeAcquisition, "failed to capture photo")
	}
	return domain.CapturedMedia{
		Kind:        domain.MediaPhoto,
		ContentType: domain.ContentTypeJPEG,
		Data:        data,
	}, nil
}

// StartRecording moves Live -> Recording.
func (a *Adapter) StartRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startRecordingLocked()
}

func (a *Adapter) startRecordingLocked() error {
	if a.state != Live {
		return ErrNotLive
	}
	rec, err := a.stream.Record()
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeAcquisition, "failed to start recording")
	}
	a.recorder = rec
	a.recordStart = a.clock.Now()
	a.state = Recording
	a.logger.Debug("Recording started", "facing", a.facing)
	return nil
}

// StopRecording moves Recording -> Live and returns the clip. The call
// suspends until the recorder has flushed.
func (a *Adapter) StopRecording(ctx context.Context) (domain.CapturedMedia, error) {
	a.mu.Lock()
	return a.stopRecordingLocked(ctx)
}

// stopRecordingLocked is entered with mu held and returns with it released.
func (a *Adapter) stopRecordingLocked(ctx context.Context) (domain.CapturedMedia, error) {
	if a.state != Recording {
		a.mu.Unlock()
		return domain.CapturedMedia{}, ErrNotRecording
	}
	rec := a.recorder
	duration := a.clock.Since(a.recordStart)
	gen := a.generation
	a.recorder = nil
	a.state = Stopped
	a.mu.Unlock()

	data, err := rec.Stop(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation == gen {
		a.state = Live
	}
	if err != nil {
		return domain.CapturedMedia{}, errors.WrapWithCode(err, errors.CodeAcquisition, "failed to finish recording")
	}

	a.logger.Debug("Recording finished", "duration", duration, "bytes", len(data))
	return domain.CapturedMedia{
		Kind:        domain.MediaVideo,
		ContentType: rec.ContentType(),
		Data:        data,
		Duration:    duration,
	}, nil
}

// PressStart arms the hold timer. If the control is still pressed when the
// threshold elapses, recording starts.
func (a *Adapter) PressStart() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Live {
		return ErrNotLive
	}
	a.stopHoldTimerLocked()
	a.pressed = true
	a.pressID++
	id := a.pressID
	a.holdTimer = a.clock.AfterFunc(a.holdThreshold, func() { a.onHold(id) })
	return nil
}

func (a *Adapter) onHold(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.pressed || a.pressID != id || a.state != Live {
		return
	}
	if err := a.startRecordingLocked(); err != nil {
		a.logger.Warn("Hold-to-record failed", "error", err)
	}
}

// PressEnd releases the control: a clip if the hold turned into a recording,
// otherwise an immediate still.
func (a *Adapter) PressEnd(ctx context.Context) (domain.CapturedMedia, error) {
	a.mu.Lock()
	if !a.pressed {
		a.mu.Unlock()
		return domain.CapturedMedia{}, ErrNotPressed
	}
	a.pressed = false
	a.stopHoldTimerLocked()

	if a.state == Recording {
		return a.stopRecordingLocked(ctx)
	}
	defer a.mu.Unlock()
	return a.capturePhotoLocked()
}

// Close stops every device track and returns the adapter to Idle. A recording
// in progress is discarded.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopHoldTimerLocked()
	a.pressed = false
	a.releaseLocked()
	a.generation++
	a.state = Idle
}

func (a *Adapter) releaseLocked() {
	a.recorder = nil
	if a.stream != nil {
		a.stream.Stop()
		a.stream = nil
	}
	a.state = Idle
}

func (a *Adapter) stopHoldTimerLocked() {
	if a.holdTimer != nil {
		a.holdTimer.Stop()
		a.holdTimer = nil
	}
}
