package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Service owns the SQL pool shared by the alias and account repositories. The
// schema and queries stick to syntax both PostgreSQL and SQLite accept
// ($n placeholders, ON CONFLICT).
type Service struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS character_aliases (
		character_id TEXT NOT NULL,
		alias        TEXT NOT NULL,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (character_id, alias)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS character_aliases_alias_idx ON character_aliases (alias)`,
	`CREATE TABLE IF NOT EXISTS enka_accounts (
		sender_id  TEXT PRIMARY KEY,
		uid        TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

func (s *Service) GetDB() *sql.DB {
	return s.db
}

func (s *Service) Driver() string {
	return s.driver
}

// Migrate creates missing tables. Safe to run on every start.
func (s *Service) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Info("Database schema ready", zap.String("driver", s.driver))
	return nil
}

func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
