package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

const waterColumns = `id, user_id, local_date, logged_at, amount_ml, created_at`

func scanWater(row rowScanner) (models.WaterEntry, error) {
	var e models.WaterEntry
	err := row.Scan(&e.ID, &e.UserID, &e.LocalDate, &e.LoggedAt, &e.AmountML, &e.CreatedAt)
	return e, err
}

type WaterService struct {
	store    *database.Store
	profiles *ProfileService
	streaks  *StreakService
	feed     *ChangeFeed
	now      func() time.Time
}

func NewWaterService(store *database.Store, profiles *ProfileService, streaks *StreakService, feed *ChangeFeed) *WaterService {
	return &WaterService{store: store, profiles: profiles, streaks: streaks, feed: feed, now: time.Now}
}

// Create logs amountML at loggedAt (server time when nil) and credits the
// local day, all in one transaction.
func (s *WaterService) Create(ctx context.Context, userID string, amountML int64, loggedAt *time.Time) (*EntryResult[models.WaterEntry], error) {
	if amountML < 1 || amountML > math.MaxInt32 {
		return nil, fmt.Errorf("%w: amount_ml must be between 1 and %d, got %d", ErrInvalidAmount, math.MaxInt32, amountML)
	}
	at := s.now()
	if loggedAt != nil {
		at = *loggedAt
	}

	tz, err := s.profiles.Timezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	localDate, err := ResolveLocalDate(at, tz)
	if err != nil {
		return nil, err
	}

	entry := models.WaterEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		LocalDate: localDate,
		LoggedAt:  at.UTC().Truncate(time.Microsecond),
		AmountML:  amountML,
		CreatedAt: nowUTC(),
	}

	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin water tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO water_entries (`+waterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), entry.ID, entry.UserID, entry.LocalDate, entry.LoggedAt, entry.AmountML, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert water entry: %w", err)
	}

	streak, outcome, err := s.streaks.credit(ctx, tx, userID, localDate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit water tx: %w", err)
	}

	metrics.RecordEntry("water")
	logging.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("entry_id", entry.ID).
		Int64("amount_ml", amountML).
		Str("credit", outcome.String()).
		Msg("Water entry created")

	change := Change{Type: EventEntryCreated, UserID: userID, Kind: "water", EntryID: entry.ID, LocalDate: localDate}
	if outcome == Admitted {
		change.Streak = &streak
	}
	s.feed.Emit(ctx, change)

	return &EntryResult[models.WaterEntry]{Entry: entry, Streak: streak}, nil
}

func (s *WaterService) List(ctx context.Context, userID string, day models.CalendarDay) ([]models.WaterEntry, error) {
	return listWater(ctx, s.store, s.store.DB, userID, day)
}

func listWater(ctx context.Context, store *database.Store, q DBTX, userID string, day models.CalendarDay) ([]models.WaterEntry, error) {
	rows, err := q.QueryContext(ctx, store.Rebind(`
		SELECT `+waterColumns+`
		FROM water_entries
		WHERE user_id = $1 AND local_date = $2
		ORDER BY logged_at ASC, created_at ASC
	`), userID, day)
	if err != nil {
		return nil, fmt.Errorf("list water entries: %w", err)
	}
	defer rows.Close()

	entries := []models.WaterEntry{}
	for rows.Next() {
		e, err := scanWater(rows)
		if err != nil {
			return nil, fmt.Errorf("scan water entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list water entries: %w", err)
	}
	return entries, nil
}

// Delete removes an entry owned by userID; the streak is left alone.
func (s *WaterService) Delete(ctx context.Context, userID, id string) error {
	var localDate models.CalendarDay
	err := s.store.DB.QueryRowContext(ctx, s.store.Rebind(`
		DELETE FROM water_entries WHERE id = $1 AND user_id = $2 RETURNING local_date
	`), id, userID).Scan(&localDate)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete water entry: %w", err)
	}

	s.feed.Emit(ctx, Change{Type: EventEntryDeleted, UserID: userID, Kind: "water", EntryID: id, LocalDate: localDate})
	return nil
}
