package story

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/internal/repositories"
	"github.com/orgball2608/storyshare/pkg/logger"
)

const foreignKeyViolation = "23503"

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger.WithComponent("StoryRepo"),
	}
}

var _ Repository = (*PgxRepository)(nil)

func insertQuery(s domain.Story) sq.InsertBuilder {
	return repositories.SqBuilder.
		Insert("stories").
		Columns("id", "user_id", "image_url", "media_kind", "caption", "created_at", "expires_at").
		Values(s.ID, s.UserID, s.ImageURL, string(s.MediaKind), s.Caption, s.CreatedAt, s.ExpiresAt)
}

func (r *PgxRepository) Create(ctx context.Context, s domain.Story) error {
	query, args, err := insertQuery(s).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create story", "Key", s.ImageURL, "Error", err)
		return errors.Join(ErrCannotCreate, err)
	}
	return nil
}

func withAuthorQuery() sq.SelectBuilder {
	return repositories.SqBuilder.
		Select(
			"s.id", "s.user_id", "s.image_url", "s.media_kind", "COALESCE(s.caption, '')", "s.created_at", "s.expires_at",
			"COALESCE(p.username, '')", "COALESCE(p.avatar_url, '')",
			"(SELECT COUNT(*) FROM likes l WHERE l.story_id = s.id)",
			"(SELECT COUNT(*) FROM comments c WHERE c.story_id = s.id)",
		).
		From("stories s").
		LeftJoin("profiles p ON p.id = s.user_id").
		OrderBy("s.created_at DESC")
}

func activeQuery(now time.Time) sq.SelectBuilder {
	return withAuthorQuery().Where(sq.Gt{"s.expires_at": now})
}

func ownerQuery(owner uuid.UUID) sq.SelectBuilder {
	return withAuthorQuery().Where(sq.Eq{"s.user_id": owner})
}

func (r *PgxRepository) ListActive(ctx context.Context, now time.Time) ([]domain.StoryWithAuthor, error) {
	return r.list(ctx, activeQuery(now))
}

func (r *PgxRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]domain.StoryWithAuthor, error) {
	return r.list(ctx, ownerQuery(owner))
}

func (r *PgxRepository) list(ctx context.Context, b sq.SelectBuilder) ([]domain.StoryWithAuthor, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []domain.StoryWithAuthor
	for rows.Next() {
		var s domain.StoryWithAuthor
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ImageURL, &s.MediaKind, &s.Caption, &s.CreatedAt, &s.ExpiresAt,
			&s.AuthorUsername, &s.AuthorAvatarURL, &s.LikeCount, &s.CommentCount,
		); err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stories, nil
}

func deleteQuery(owner, id uuid.UUID) sq.DeleteBuilder {
	return repositories.SqBuilder.
		Delete("stories").
		Where(sq.Eq{"id": id, "user_id": owner})
}

func (r *PgxRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	query, args, err := deleteQuery(owner, id).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrForeign(ctx, id)
	}
	return nil
}

func authorQuery(id uuid.UUID) sq.SelectBuilder {
	return repositories.SqBuilder.
		Select("user_id").
		From("stories").
		Where(sq.Eq{"id": id})
}

// missingOrForeign tells a story that does not exist from one written by
// someone else.
func (r *PgxRepository) missingOrForeign(ctx context.Context, id uuid.UUID) error {
	query, args, err := authorQuery(id).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	var author uuid.UUID
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&author); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrNotOwner
}

func likeQuery(storyID, userID uuid.UUID) sq.InsertBuilder {
	return repositories.SqBuilder.
		Insert("likes").
		Columns("story_id", "user_id").
		Values(storyID, userID).
		Suffix("ON CONFLICT (story_id, user_id) DO NOTHING")
}

func (r *PgxRepository) Like(ctx context.Context, storyID, userID uuid.UUID) error {
	query, args, err := likeQuery(storyID, userID).ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *PgxRepository) ImageKeys(ctx context.Context) ([]string, error) {
	query, args, err := repositories.SqBuilder.
		Select("image_url").
		From("stories").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
