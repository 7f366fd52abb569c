package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

var (
	ErrNotFound = errors.New("profile not found")
	// ErrAlreadyExists means the username belongs to another profile.
	ErrAlreadyExists = errors.New("username already taken")
)

//go:generate go run go.uber.org/mock/mockgen -source=profile.go -destination=mocks/mock.go
type Repository interface {
	// Upsert inserts the profile or updates username, avatar and email of an
	// existing one. created_at is never overwritten.
	Upsert(ctx context.Context, profile domain.Profile) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)
}
