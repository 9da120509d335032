// Package database holds the pgx connection pool and the Postgres
// implementations of room storage and game history. The pool is
// optional: when Pool is nil the server runs on the in-memory store
// and history persistence is skipped.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Pool is the shared connection pool. Nil when no database is configured.
var Pool *pgxpool.Pool

// Connect opens the shared pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("database ping: %w", err)
	}
	Pool = pool
	logrus.Info("database connected")
	return nil
}

// Close releases the shared pool.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}

// Migrate creates the schema if it does not exist. Rooms are stored as
// a jsonb document plus a version column; every mutation is a
// compare-and-swap on the version, which gives the conditional-update
// guarantees rooms need without row locks held across the app.
func Migrate(ctx context.Context) error {
	if Pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id         TEXT PRIMARY KEY,
			is_private BOOLEAN     NOT NULL DEFAULT FALSE,
			status     TEXT        NOT NULL,
			doc        JSONB       NOT NULL,
			version    BIGINT      NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game_history (
			id          BIGSERIAL PRIMARY KEY,
			room_id     TEXT        NOT NULL,
			room_name   TEXT        NOT NULL,
			winner_name TEXT        NOT NULL,
			players     JSONB       NOT NULL,
			doc         JSONB       NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			ended_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_history_winner ON game_history (winner_name)`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms (status) WHERE NOT is_private`,
	}
	for _, stmt := range stmts {
		if _, err := Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
