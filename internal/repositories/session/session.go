package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrCannotCreate = errors.New("error create session")
)

//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=mocks/mock.go
type Repository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Revoke marks an active session revoked. Revoking an unknown or already
	// revoked session returns ErrNotFound.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
}
