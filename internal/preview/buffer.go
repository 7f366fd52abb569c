// Package preview holds the one piece of captured media awaiting the user's
// share-or-retake decision.
package preview

import (
	"errors"
	"sync"

	"github.com/orgball2608/storyshare/internal/domain"
)

type State int

const (
	Empty State = iota
	Holding
	Consumed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Holding:
		return "holding"
	case Consumed:
		return "consumed"
	}
	return "unknown"
}

var (
	ErrOccupied = errors.New("a capture is already pending; share or retake it first")
	ErrEmpty    = errors.New("nothing captured yet")
)

type Buffer struct {
	mu      sync.Mutex
	state   State
	pending *domain.CapturedMedia
	caption string
}

func New() *Buffer {
	return &Buffer{}
}

// Hold stores media for review. Only one capture can be pending.
func (b *Buffer) Hold(media domain.CapturedMedia) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Holding {
		return ErrOccupied
	}
	b.pending = &media
	b.caption = ""
	b.state = Holding
	return nil
}

// SetCaption attaches a caption to the pending capture.
func (b *Buffer) SetCaption(caption string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Holding {
		return ErrEmpty
	}
	b.caption = caption
	return nil
}

// Peek returns the pending capture without taking it.
func (b *Buffer) Peek() (domain.CapturedMedia, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Holding {
		return domain.CapturedMedia{}, false
	}
	return *b.pending, true
}

// Discard drops the pending capture ("retake").
func (b *Buffer) Discard() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Holding {
		return ErrEmpty
	}
	b.pending = nil
	b.caption = ""
	b.state = Empty
	return nil
}

// Consume hands the pending capture and its caption to the caller ("send").
// From then on the caller owns it.
func (b *Buffer) Consume() (domain.CapturedMedia, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Holding {
		return domain.CapturedMedia{}, "", ErrEmpty
	}
	media, caption := *b.pending, b.caption
	b.pending = nil
	b.caption = ""
	b.state = Consumed
	return media, caption, nil
}

func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
