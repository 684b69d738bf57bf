package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

const mealColumns = `id, user_id, local_date, logged_at, meal, food_id, label_snapshot,
	serving_quantity, serving_unit, kcal, protein_g, carbs_g, fat_g, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeal(row rowScanner) (models.MealEntry, error) {
	var e models.MealEntry
	var meal string
	err := row.Scan(&e.ID, &e.UserID, &e.LocalDate, &e.LoggedAt, &meal, &e.FoodID, &e.LabelSnapshot,
		&e.ServingQuantity, &e.ServingUnit, &e.Kcal, &e.ProteinG, &e.CarbsG, &e.FatG, &e.CreatedAt, &e.UpdatedAt)
	e.Meal = models.MealType(meal)
	return e, err
}

// CreateMealInput is a validated meal entry. The local date is not part of it:
// it is always derived from LoggedAt and the user's timezone.
type CreateMealInput struct {
	LoggedAt        time.Time
	Meal            models.MealType
	FoodID          *string
	LabelSnapshot   string
	ServingQuantity decimal.Decimal
	ServingUnit     *string
	Kcal            decimal.Decimal
	ProteinG        decimal.NullDecimal
	CarbsG          decimal.NullDecimal
	FatG            decimal.NullDecimal
}

// UpdateMealInput holds the fields to change; nil means keep.
type UpdateMealInput struct {
	LoggedAt        *time.Time
	Meal            *models.MealType
	FoodID          *string
	LabelSnapshot   *string
	ServingQuantity *decimal.Decimal
	ServingUnit     *string
	Kcal            *decimal.Decimal
	ProteinG        *decimal.Decimal
	CarbsG          *decimal.Decimal
	FatG            *decimal.Decimal
}

// EntryResult is a committed entry plus the streak as it stands afterwards.
type EntryResult[T any] struct {
	Entry  T                    `json:"entry"`
	Streak models.StreakSummary `json:"streak"`
}

type MealService struct {
	store    *database.Store
	profiles *ProfileService
	streaks  *StreakService
	feed     *ChangeFeed
}

func NewMealService(store *database.Store, profiles *ProfileService, streaks *StreakService, feed *ChangeFeed) *MealService {
	return &MealService{store: store, profiles: profiles, streaks: streaks, feed: feed}
}

// Create stores the entry and credits its local day in one transaction.
func (s *MealService) Create(ctx context.Context, userID string, in CreateMealInput) (*EntryResult[models.MealEntry], error) {
	// Read outside the tx: SQLite has a single connection
	tz, err := s.profiles.Timezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	localDate, err := ResolveLocalDate(in.LoggedAt, tz)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	entry := models.MealEntry{
		ID:              uuid.NewString(),
		UserID:          userID,
		LocalDate:       localDate,
		LoggedAt:        in.LoggedAt.UTC().Truncate(time.Microsecond),
		Meal:            in.Meal,
		FoodID:          in.FoodID,
		LabelSnapshot:   in.LabelSnapshot,
		ServingQuantity: in.ServingQuantity,
		ServingUnit:     in.ServingUnit,
		Kcal:            in.Kcal,
		ProteinG:        in.ProteinG,
		CarbsG:          in.CarbsG,
		FatG:            in.FatG,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin meal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO meal_entries (`+mealColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`), entry.ID, entry.UserID, entry.LocalDate, entry.LoggedAt, string(entry.Meal), entry.FoodID, entry.LabelSnapshot,
		entry.ServingQuantity, entry.ServingUnit, entry.Kcal, entry.ProteinG, entry.CarbsG, entry.FatG, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert meal entry: %w", err)
	}

	streak, outcome, err := s.streaks.credit(ctx, tx, userID, localDate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit meal tx: %w", err)
	}

	metrics.RecordEntry("meal")
	logging.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("entry_id", entry.ID).
		Str("local_date", localDate.String()).
		Str("credit", outcome.String()).
		Msg("Meal entry created")

	change := Change{Type: EventEntryCreated, UserID: userID, Kind: "meal", EntryID: entry.ID, LocalDate: localDate}
	if outcome == Admitted {
		change.Streak = &streak
	}
	s.feed.Emit(ctx, change)

	return &EntryResult[models.MealEntry]{Entry: entry, Streak: streak}, nil
}

// List returns the user's meal entries for day, ordered by logged_at.
func (s *MealService) List(ctx context.Context, userID string, day models.CalendarDay) ([]models.MealEntry, error) {
	return listMeals(ctx, s.store, s.store.DB, userID, day)
}

func listMeals(ctx context.Context, store *database.Store, q DBTX, userID string, day models.CalendarDay) ([]models.MealEntry, error) {
	rows, err := q.QueryContext(ctx, store.Rebind(`
		SELECT `+mealColumns+`
		FROM meal_entries
		WHERE user_id = $1 AND local_date = $2
		ORDER BY logged_at ASC, created_at ASC
	`), userID, day)
	if err != nil {
		return nil, fmt.Errorf("list meal entries: %w", err)
	}
	defer rows.Close()

	entries := []models.MealEntry{}
	for rows.Next() {
		e, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list meal entries: %w", err)
	}
	return entries, nil
}

// Update edits an entry owned by userID. A new logged_at moves the entry to
// the matching local date; the streak is never touched.
func (s *MealService) Update(ctx context.Context, userID, id string, in UpdateMealInput) (*models.MealEntry, error) {
	var tz string
	if in.LoggedAt != nil {
		var err error
		if tz, err = s.profiles.Timezone(ctx, userID); err != nil {
			return nil, err
		}
	}

	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin meal update tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := scanMeal(tx.QueryRowContext(ctx, s.store.Rebind(`
		SELECT `+mealColumns+` FROM meal_entries WHERE id = $1 AND user_id = $2`+s.store.ForUpdate()), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load meal entry: %w", err)
	}

	if in.LoggedAt != nil {
		localDate, err := ResolveLocalDate(*in.LoggedAt, tz)
		if err != nil {
			return nil, err
		}
		entry.LoggedAt = in.LoggedAt.UTC().Truncate(time.Microsecond)
		entry.LocalDate = localDate
	}
	if in.Meal != nil {
		entry.Meal = *in.Meal
	}
	if in.FoodID != nil {
		entry.FoodID = in.FoodID
	}
	if in.LabelSnapshot != nil {
		entry.LabelSnapshot = *in.LabelSnapshot
	}
	if in.ServingQuantity != nil {
		entry.ServingQuantity = *in.ServingQuantity
	}
	if in.ServingUnit != nil {
		entry.ServingUnit = in.ServingUnit
	}
	if in.Kcal != nil {
		entry.Kcal = *in.Kcal
	}
	if in.ProteinG != nil {
		entry.ProteinG = decimal.NewNullDecimal(*in.ProteinG)
	}
	if in.CarbsG != nil {
		entry.CarbsG = decimal.NewNullDecimal(*in.CarbsG)
	}
	if in.FatG != nil {
		entry.FatG = decimal.NewNullDecimal(*in.FatG)
	}
	entry.UpdatedAt = nowUTC()

	_, err = tx.ExecContext(ctx, s.store.Rebind(`
		UPDATE meal_entries SET
			local_date = $3, logged_at = $4, meal = $5, food_id = $6, label_snapshot = $7, serving_quantity = $8,
			serving_unit = $9, kcal = $10, protein_g = $11, carbs_g = $12, fat_g = $13, updated_at = $14
		WHERE id = $1 AND user_id = $2
	`), entry.ID, userID, entry.LocalDate, entry.LoggedAt, string(entry.Meal), entry.FoodID, entry.LabelSnapshot,
		entry.ServingQuantity, entry.ServingUnit, entry.Kcal, entry.ProteinG, entry.CarbsG, entry.FatG, entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update meal entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit meal update tx: %w", err)
	}

	s.feed.Emit(ctx, Change{Type: EventEntryUpdated, UserID: userID, Kind: "meal", EntryID: entry.ID, LocalDate: entry.LocalDate})
	return &entry, nil
}

// Delete removes an entry owned by userID. Ledger rows and counters stay as they are.
func (s *MealService) Delete(ctx context.Context, userID, id string) error {
	var localDate models.CalendarDay
	err := s.store.DB.QueryRowContext(ctx, s.store.Rebind(`
		DELETE FROM meal_entries WHERE id = $1 AND user_id = $2 RETURNING local_date
	`), id, userID).Scan(&localDate)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete meal entry: %w", err)
	}

	s.feed.Emit(ctx, Change{Type: EventEntryDeleted, UserID: userID, Kind: "meal", EntryID: id, LocalDate: localDate})
	return nil
}
