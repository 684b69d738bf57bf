package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

// Dialect names the SQL engine behind a Store. Queries are written once in
// Postgres form and passed through Rebind.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store is the transactional store the services run against.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// ForUpdate returns the row-lock clause for SELECTs inside a write transaction.
// SQLite has none; its single connection already serializes writers.
func (s *Store) ForUpdate() string {
	if s.Dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

var pgPlaceholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $n placeholders into SQLite's ?n form. Postgres queries pass
// through unchanged.
func (s *Store) Rebind(query string) string {
	if s.Dialect != SQLite {
		return query
	}
	return pgPlaceholder.ReplaceAllString(query, "?$1")
}

// InitTables creates all tables and indexes if they don't exist
func (s *Store) InitTables() error {
	queries := postgresSchema
	if s.Dialect == SQLite {
		queries = sqliteSchema
	}

	for _, query := range queries {
		if _, err := s.DB.Exec(query); err != nil {
			return fmt.Errorf("init %s schema: %w", s.Dialect, err)
		}
	}

	logging.Info().Str("dialect", string(s.Dialect)).Msg("✅ Tables initialized")
	return nil
}

// Ping runs a trivial query, used by the db health check.
func (s *Store) Ping(ctx context.Context) error {
	var ok int
	if err := s.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("unexpected ping result %d", ok)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
