package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "nutrilog.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newPostgresStore connects to POSTGRES_TEST_URL or skips the test.
func newPostgresStore(t *testing.T) *database.Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping integration test")
	}
	store, err := database.OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(t *testing.T, s string) models.CalendarDay {
	t.Helper()
	d, err := models.ParseCalendarDay(s)
	if err != nil {
		t.Fatalf("parse day %q: %v", s, err)
	}
	return d
}

func ptrInt64(v int64) *int64 { return &v }

var testNow = time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

func goalsOf(calorie, water *int64) models.Goals {
	return models.Goals{CalorieGoal: calorie, WaterGoalML: water}
}
