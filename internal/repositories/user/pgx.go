package user

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/repositories"
	"github.com/orgball2608/storyshare/pkg/logger"
)

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger.WithComponent("UserRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func insertQuery(user domain.User) sq.InsertBuilder {
	return repositories.SqBuilder.
		Insert("users").
		Columns("id", "email", "password_hash", "created_at").
		Values(user.ID, normalizeEmail(user.Email), user.PasswordHash, user.CreatedAt)
}

func (r *PgxRepository) Create(ctx context.Context, user domain.User) error {
	query, args, err := insertQuery(user).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == repositories.UniqueViolation {
			return ErrAlreadyExists
		}
		r.logger.Error("Failed to create user", "Error", err)
		return err
	}
	return nil
}

func (r *PgxRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "email", "password_hash", "created_at").
		From("users").
		Where(sq.Eq{"email": normalizeEmail(email)}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var u domain.User
	err = r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
