package session

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
		logger: logger.WithComponent("SessionRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) Create(ctx context.Context, session domain.Session) error {
	query, args, err := repositories.SqBuilder.
		Insert("sessions").
		Columns("id", "user_id", "created_at", "expires_at").
		Values(session.ID, session.UserID, session.CreatedAt, session.ExpiresAt).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create session", "UserID", session.UserID, "Error", err)
		return ErrCannotCreate
	}
	return nil
}

func (r *PgxRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "user_id", "created_at", "expires_at", "revoked_at").
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var s domain.Session
	err = r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func revokeQuery(id uuid.UUID, at time.Time) sq.UpdateBuilder {
	return repositories.SqBuilder.
		Update("sessions").
		Set("revoked_at", at).
		Where(sq.Eq{"id": id, "revoked_at": nil})
}

func (r *PgxRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := revokeQuery(id, at).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
