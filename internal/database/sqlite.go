package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

// OpenSQLite opens a file-backed SQLite store for local runs and tests. SQLite
// allows a single writer, so the pool is pinned to one connection; that also
// serializes every transaction, which stands in for Postgres row locks.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	logging.Info().Str("path", path).Msg("✅ Opened SQLite database")

	store := &Store{DB: db, Dialect: SQLite}
	if err := store.InitTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS goals (
		user_id TEXT PRIMARY KEY,
		calorie_goal INTEGER,
		water_goal_ml INTEGER,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS meal_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		local_date TEXT NOT NULL,
		logged_at TIMESTAMP NOT NULL,
		meal TEXT NOT NULL,
		food_id TEXT,
		label_snapshot TEXT NOT NULL,
		serving_quantity TEXT NOT NULL,
		serving_unit TEXT,
		kcal TEXT NOT NULL,
		protein_g TEXT,
		carbs_g TEXT,
		fat_g TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS water_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		local_date TEXT NOT NULL,
		logged_at TIMESTAMP NOT NULL,
		amount_ml INTEGER NOT NULL CHECK (amount_ml > 0),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS streak_credits (
		user_id TEXT NOT NULL,
		local_date TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, local_date)
	)`,

	`CREATE TABLE IF NOT EXISTS streaks (
		user_id TEXT PRIMARY KEY,
		current_streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		last_credited_date TEXT,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_meal_entries_user_date ON meal_entries(user_id, local_date, logged_at)`,
	`CREATE INDEX IF NOT EXISTS idx_water_entries_user_date ON water_entries(user_id, local_date, logged_at)`,
}
