package story

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

var (
	ErrNotFound     = errors.New("story not found")
	ErrNotOwner     = errors.New("story belongs to another user")
	ErrCannotCreate = errors.New("error create story")
)

//go:generate go run go.uber.org/mock/mockgen -source=story.go -destination=mocks/mock.go
type Repository interface {
	Create(ctx context.Context, story domain.Story) error

	// ListActive returns stories with expires_at after now, newest first,
	// joined with the author profile and like/comment counts.
	ListActive(ctx context.Context, now time.Time) ([]domain.StoryWithAuthor, error)

	// ListByOwner returns every story of one user regardless of expiry.
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.StoryWithAuthor, error)

	// Delete removes a story only when owner wrote it. A story written by
	// someone else yields ErrNotOwner, an unknown id ErrNotFound.
	Delete(ctx context.Context, owner, id uuid.UUID) error

	// Like records that user liked a story. Liking twice is a no-op.
	Like(ctx context.Context, storyID, userID uuid.UUID) error

	// ImageKeys returns the storage key of every story row.
	ImageKeys(ctx context.Context) ([]string, error)
}
