package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ai_images_creator_credits (
	user_id    TEXT PRIMARY KEY,
	credits    INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS ai_images_creator_history (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	image_urls TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_history_user_created
	ON ai_images_creator_history (user_id, created_at DESC)`,
}

// EnsureSchema applies the idempotent schema statements at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
