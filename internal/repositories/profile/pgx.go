package profile

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
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
		logger: logger.WithComponent("ProfileRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func upsertQuery(p domain.Profile) sq.InsertBuilder {
	return repositories.SqBuilder.
		Insert("profiles").
		Columns("id", "username", "avatar_url", "email", "created_at").
		Values(p.ID, p.Username, p.AvatarURL, p.Email, p.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, avatar_url = EXCLUDED.avatar_url, email = EXCLUDED.email")
}

func (r *PgxRepository) Upsert(ctx context.Context, p domain.Profile) error {
	query, args, err := upsertQuery(p).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == repositories.UniqueViolation {
			return ErrAlreadyExists
		}
		r.logger.Error("Failed to upsert profile", "ID", p.ID, "Error", err)
		return err
	}
	return nil
}

func (r *PgxRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.getWhere(ctx, sq.Eq{"id": id})
}

func (r *PgxRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.getWhere(ctx, sq.Eq{"username": username})
}

func (r *PgxRepository) getWhere(ctx context.Context, pred sq.Eq) (*domain.Profile, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "username", "COALESCE(avatar_url, '')", "COALESCE(email, '')", "created_at").
		From("profiles").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var p domain.Profile
	err = r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Username, &p.AvatarURL, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
