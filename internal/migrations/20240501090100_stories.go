package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upStories, downStories)
}

func upStories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE stories (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		image_url  VARCHAR NOT NULL,
		media_kind VARCHAR NOT NULL DEFAULT 'photo',
		caption    VARCHAR,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		CHECK (expires_at > created_at)
	);
	CREATE INDEX stories_expires_at_idx ON stories (expires_at);
	CREATE INDEX stories_user_id_idx ON stories (user_id);

	CREATE TABLE likes (
		story_id   UUID NOT NULL REFERENCES stories (id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
		PRIMARY KEY (story_id, user_id)
	);

	CREATE TABLE comments (
		id         SERIAL PRIMARY KEY,
		story_id   UUID NOT NULL REFERENCES stories (id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		body       VARCHAR NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE INDEX comments_story_id_idx ON comments (story_id);
	`)
	return err
}

func downStories(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	DROP TABLE comments;
	DROP TABLE likes;
	DROP TABLE stories;
	`)
	return err
}
