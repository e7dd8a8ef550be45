package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateStoryCache, downCreateStoryCache)
}

func upCreateStoryCache(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE story_cache (
		id INTEGER PRIMARY KEY,
		name TEXT,
		title TEXT,
		details TEXT,
		location TEXT,
		email TEXT,
		date TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE,
		visible BOOLEAN NOT NULL DEFAULT true,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		media JSONB,
		user_id TEXT,
		hide_user BOOLEAN NOT NULL DEFAULT false,
		populated_user BOOLEAN NOT NULL DEFAULT false
	);
	CREATE INDEX story_cache_user_id_idx ON story_cache (user_id);
	CREATE INDEX story_cache_created_at_idx ON story_cache (created_at);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downCreateStoryCache(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE story_cache;
	`)
	if err != nil {
		return err
	}
	return nil
}
