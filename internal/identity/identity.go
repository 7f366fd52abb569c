package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/orgball2608/storyshare/internal/domain"
)

// ErrEmailTaken marks a sign-up for an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=mocks/mock.go
type Service interface {
	// SignUp registers a new account and opens a session for it.
	SignUp(ctx context.Context, email, password string) (*domain.Credentials, error)
	SignIn(ctx context.Context, email, password string) (*domain.Credentials, error)

	// CurrentUser resolves a session token. Invalid, expired and revoked
	// tokens all fail with an auth error.
	CurrentUser(ctx context.Context, token string) (uuid.UUID, error)
	SignOut(ctx context.Context, token string) error
}
