package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

// schema is applied at startup. Stage transitions are single-row UPDATEs,
// so a crash can never leave a job in a state resumption cannot read back.
const schema = `
CREATE TABLE IF NOT EXISTS movie_jobs (
	id            UUID PRIMARY KEY,
	movie_id      TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	source_path   TEXT NOT NULL,
	stage         TEXT NOT NULL,
	error_kind    TEXT,
	error_message TEXT,
	scene_count   INTEGER,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_movie_jobs_stage ON movie_jobs(stage);
`

func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &DB{conn}, nil
}
