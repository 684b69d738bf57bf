package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

// OpenPostgres connects to PostgreSQL and creates the schema if needed.
func OpenPostgres(postgresURI string) (*Store, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logging.Info().Msg("✅ Connected to PostgreSQL")

	store := &Store{DB: db, Dialect: Postgres}
	if err = store.InitTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id VARCHAR(255) PRIMARY KEY,
		timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS goals (
		user_id VARCHAR(255) PRIMARY KEY,
		calorie_goal INTEGER,
		water_goal_ml INTEGER,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS meal_entries (
		id UUID PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		local_date DATE NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL,
		meal VARCHAR(32) NOT NULL,
		food_id UUID,
		label_snapshot VARCHAR(200) NOT NULL,
		serving_quantity NUMERIC(12, 4) NOT NULL,
		serving_unit VARCHAR(50),
		kcal NUMERIC(10, 2) NOT NULL,
		protein_g NUMERIC(10, 2),
		carbs_g NUMERIC(10, 2),
		fat_g NUMERIC(10, 2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS water_entries (
		id UUID PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		local_date DATE NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL,
		amount_ml INTEGER NOT NULL CHECK (amount_ml > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// One row per credited (user, day); the unique key is what makes crediting idempotent
	`CREATE TABLE IF NOT EXISTS streak_credits (
		user_id VARCHAR(255) NOT NULL,
		local_date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, local_date)
	)`,

	`CREATE TABLE IF NOT EXISTS streaks (
		user_id VARCHAR(255) PRIMARY KEY,
		current_streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		last_credited_date DATE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_meal_entries_user_date ON meal_entries(user_id, local_date, logged_at)`,
	`CREATE INDEX IF NOT EXISTS idx_water_entries_user_date ON water_entries(user_id, local_date, logged_at)`,
}
