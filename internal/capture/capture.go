// Package capture drives a camera/microphone device through acquisition,
// still capture and clip recording.
package capture

import (
	"context"
	"errors"
)

type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

func ParseFacing(s string) (Facing, error) {
	switch Facing(s) {
	case FacingFront, FacingBack:
		return Facing(s), nil
	}
	return "", errors.New("facing must be front or back")
}

type State int

const (
	Idle State = iota
	Acquiring
	Live
	Recording
	// Stopped is held while a recorder flushes its clip.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Live:
		return "live"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Device errors. Implementations return (or wrap) these so the adapter can
// report a meaningful notice.
var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrDeviceUnavailable = errors.New("camera unavailable")
	ErrDeviceBusy        = errors.New("camera busy")
)

// Adapter errors.
var (
	ErrNotLive      = errors.New("camera is not live")
	ErrNotRecording = errors.New("camera is not recording")
	ErrNotPressed   = errors.New("capture control is not pressed")
	ErrClosed       = errors.New("capture adapter closed")
)

// Device opens a live audio/video stream for one facing.
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is a live device stream.
type Stream interface {
	Facing() Facing
	// Snapshot returns the current frame as a JPEG image.
	Snapshot() ([]byte, error)
	// Record starts a recorder on the stream.
	Record() (Recorder, error)
	// Stop ends every track of the stream. It is safe to call more than once.
	Stop()
}

type Recorder interface {
	// Stop ends the recording and returns the encoded clip.
	Stop(ctx context.Context) ([]byte, error)
	ContentType() string
}
