package feed

import (
	"context"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=feed.go -destination=mocks/mock.go
type Service interface {
	// ListActiveStories returns every unexpired story, newest first. Items
	// authored by viewer are marked deletable.
	ListActiveStories(ctx context.Context, viewer uuid.UUID) ([]domain.FeedItem, error)

	// ListOwnStories returns all of owner's stories, expired ones included.
	ListOwnStories(ctx context.Context, owner uuid.UUID) ([]domain.FeedItem, error)

	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindProfile(ctx context.Context, username string) (*domain.Profile, error)

	// DeleteStory removes the record only. The stored object stays.
	DeleteStory(ctx context.Context, owner, id uuid.UUID) error

	Like(ctx context.Context, viewer, storyID uuid.UUID) error
}
