package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order on startup. Each one is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS prompts (
		id UUID PRIMARY KEY,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts (created_at DESC)`,
}

// EnsureSchema creates the prompts table and its index when missing.
func EnsureSchema(ctx context.Context, db PgxPool) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=postgres.ensure_schema step=%d: %w", i, err)
		}
	}
	return nil
}
