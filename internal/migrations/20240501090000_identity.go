package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upIdentity, downIdentity)
}

func upIdentity(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE users (
		id            UUID PRIMARY KEY,
		email         VARCHAR NOT NULL UNIQUE,
		password_hash VARCHAR NOT NULL,
		created_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE sessions (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		revoked_at TIMESTAMP WITH TIME ZONE
	);
	CREATE INDEX sessions_user_id_idx ON sessions (user_id);

	CREATE TABLE profiles (
		id         UUID PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
		username   VARCHAR NOT NULL UNIQUE,
		avatar_url VARCHAR,
		email      VARCHAR,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	`)
	return err
}

func downIdentity(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	DROP TABLE profiles;
	DROP TABLE sessions;
	DROP TABLE users;
	`)
	return err
}
