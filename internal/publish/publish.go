package publish

import (
	"context"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=publish.go -destination=mocks/mock.go
type Pipeline interface {
	// Publish uploads the media and then writes the story record. A record is
	// never written for an object that failed to upload.
	Publish(ctx context.Context, media domain.CapturedMedia, owner uuid.UUID, caption string) (*domain.Story, error)

	// UpdateProfile upserts the owner's profile. A failed avatar upload falls
	// back to the placeholder avatar instead of failing the update.
	UpdateProfile(ctx context.Context, owner uuid.UUID, update domain.ProfileUpdate) (*domain.Profile, error)
}
