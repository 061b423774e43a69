package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a Postgres connection pool, verifies it with a ping and
// applies migrations. The caller owns the returned *sql.DB.
func Connect(ctx context.Context, databaseURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Println("Successfully connected to Postgres.")
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id SERIAL PRIMARY KEY,
			text_prompt TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			text_model TEXT NOT NULL DEFAULT '',
			text_generated_at TIMESTAMPTZ,
			text_status TEXT NOT NULL DEFAULT 'success',
			image_ref TEXT NOT NULL DEFAULT '',
			image_prompt TEXT NOT NULL DEFAULT '',
			image_model TEXT NOT NULL DEFAULT '',
			image_generated_at TIMESTAMPTZ,
			image_status TEXT NOT NULL DEFAULT 'success',
			error_message TEXT NOT NULL DEFAULT '',
			is_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
			scheduled_at TIMESTAMPTZ,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			published_at TIMESTAMPTZ,
			channel_message_id INTEGER NOT NULL DEFAULT 0,
			views BIGINT NOT NULL DEFAULT 0,
			comments INTEGER NOT NULL DEFAULT 0,
			reactions JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_posts_pending
			ON posts (scheduled_at)
			WHERE is_scheduled AND NOT published;`,
	}

	for i, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration #%d: %w", i+1, err)
		}
	}
	return nil
}
