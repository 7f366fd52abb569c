package identityimpl

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/internal/repositories/session"
	"github.com/orgball2608/storyshare/internal/repositories/user"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/errors"
	"github.com/orgball2608/storyshare/pkg/logger"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Opts struct {
	fx.In

	Users    user.Repository
	Sessions session.Repository
	Config   *config.Config
	Logger   logger.Logger
	Clock    clockwork.Clock
}

type IdentityImpl struct {
	users    user.Repository
	sessions session.Repository
	secret   []byte
	ttl      time.Duration
	clock    clockwork.Clock
	logger   logger.Logger
	cost     int
}

var _ identity.Service = (*IdentityImpl)(nil)

func New(opts Opts) *IdentityImpl {
	return &IdentityImpl{
		users:    opts.Users,
		sessions: opts.Sessions,
		secret:   []byte(opts.Config.Session.Secret),
		ttl:      opts.Config.Session.TTL,
		clock:    opts.Clock,
		logger:   opts.Logger.WithComponent("Identity"),
		cost:     bcrypt.DefaultCost,
	}
}

type claims struct {
	jwt.RegisteredClaims
}

func authError(message string) error {
	return errors.NewWithCode(errors.CodeAuth, message)
}

func (s *IdentityImpl) SignUp(ctx context.Context, email, password string) (*domain.Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, authError("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, authError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to hash password")
	}

	u := domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return nil, errors.WrapWithCode(fmt.Errorf("%w: %w", identity.ErrEmailTaken, err), errors.CodeAuth, "an account with this email already exists")
		}
		return nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to create account")
	}

	s.logger.Info("User signed up", "UserID", u.ID)
	return s.openSession(ctx, u.ID)
}

func (s *IdentityImpl) SignIn(ctx context.Context, email, password string) (*domain.Credentials, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, authError("invalid login credentials")
		}
		return nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to look up account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, authError("invalid login credentials")
	}
	return s.openSession(ctx, u.ID)
}

func (s *IdentityImpl) openSession(ctx context.Context, userID uuid.UUID) (*domain.Credentials, error) {
	now := s.clock.Now()
	sess := domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to open session")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID.String(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to sign session token")
	}

	return &domain.Credentials{
		UserID:    userID,
		Token:     signed,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// parse validates signature and expiry and returns the session id and user id.
func (s *IdentityImpl) parse(token string) (uuid.UUID, uuid.UUID, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, uuid.Nil, authError("invalid session token")
	}

	sessionID, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, authError("invalid session token")
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, authError("invalid session token")
	}
	return sessionID, userID, nil
}

func (s *IdentityImpl) CurrentUser(ctx context.Context, token string) (uuid.UUID, error) {
	sessionID, userID, err := s.parse(token)
	if err != nil {
		return uuid.Nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return uuid.Nil, authError("session not found")
		}
		return uuid.Nil, errors.WrapWithCode(err, errors.CodeAuth, "failed to load session")
	}
	switch {
	case sess.RevokedAt != nil:
		return uuid.Nil, authError("session has been signed out")
	case !sess.ExpiresAt.After(s.clock.Now()):
		return uuid.Nil, authError("session expired")
	case sess.UserID != userID:
		return uuid.Nil, authError("invalid session token")
	}
	return userID, nil
}

func (s *IdentityImpl) SignOut(ctx context.Context, token string) error {
	sessionID, userID, err := s.parse(token)
	if err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, sessionID, s.clock.Now()); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return authError("session already signed out")
		}
		return errors.WrapWithCode(err, errors.CodeAuth, "failed to sign out")
	}
	s.logger.Info("User signed out", "UserID", userID)
	return nil
}
