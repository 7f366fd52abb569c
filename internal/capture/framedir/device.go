// Package framedir is a camera that plays JPEG frames from a directory tree:
// <root>/front/*.jpg and <root>/back/*.jpg. Recordings are motion-JPEG.
package framedir

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/capture"
	"github.com/orgball2608/storyshare/internal/domain"
)

const DefaultFrameInterval = 100 * time.Millisecond

type Option func(*Device)

func WithClock(c clockwork.Clock) Option {
	return func(d *Device) { d.clock = c }
}

func WithFrameInterval(i time.Duration) Option {
	return func(d *Device) { d.interval = i }
}

// Device allows one open stream at a time, like a physical camera.
type Device struct {
	root     string
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	busy bool
}

func New(root string, opts ...Option) *Device {
	d := &Device{
		root:     root,
		clock:    clockwork.NewRealClock(),
		interval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) Open(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return nil, capture.ErrDeviceBusy
	}

	frames, err := loadFrames(filepath.Join(d.root, string(facing)))
	if err != nil {
		return nil, err
	}

	d.busy = true
	return &stream{device: d, facing: facing, frames: frames}, nil
}

func (d *Device) release() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

func loadFrames(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", capture.ErrPermissionDenied, dir)
		}
		return nil, fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".jpg" || ext == ".jpeg") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", capture.ErrDeviceUnavailable, dir)
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

type stream struct {
	device *Device
	facing capture.Facing
	frames [][]byte

	mu       sync.Mutex
	cursor   int
	stopped  bool
	recorder *recorder
}

func (s *stream) Facing() capture.Facing { return s.facing }

func (s *stream) nextFrame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, false
	}
	f := s.frames[s.cursor%len(s.frames)]
	s.cursor++
	return f, true
}

func (s *stream) Snapshot() ([]byte, error) {
	f, ok := s.nextFrame()
	if !ok {
		return nil, capture.ErrDeviceUnavailable
	}
	return bytes.Clone(f), nil
}

func (s *stream) Record() (capture.Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, capture.ErrDeviceUnavailable
	}
	if s.recorder != nil {
		return nil, capture.ErrDeviceBusy
	}

	r := &recorder{
		stream: s,
		ticker: s.device.clock.NewTicker(s.device.interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.recorder = r
	go r.run()
	return r, nil
}

func (s *stream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	r := s.recorder
	s.recorder = nil
	s.mu.Unlock()

	if r != nil {
		r.halt()
		<-r.done
	}
	s.device.release()
}

type recorder struct {
	stream *stream
	ticker clockwork.Ticker
	once   sync.Once
	stop   chan struct{}
	done   chan struct{}

	buf bytes.Buffer
}

func (r *recorder) run() {
	defer close(r.done)
	defer r.ticker.Stop()

	if f, ok := r.stream.nextFrame(); ok {
		r.buf.Write(f)
	}
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.Chan():
			f, ok := r.stream.nextFrame()
			if !ok {
				return
			}
			r.buf.Write(f)
		}
	}
}

func (r *recorder) halt() {
	r.once.Do(func() { close(r.stop) })
}

func (r *recorder) Stop(ctx context.Context) ([]byte, error) {
	r.halt()
	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	r.stream.mu.Lock()
	if r.stream.recorder == r {
		r.stream.recorder = nil
	}
	r.stream.mu.Unlock()

	return r.buf.Bytes(), nil
}

func (r *recorder) ContentType() string { return domain.ContentTypeMJPEG }

var _ capture.Device = (*Device)(nil)
