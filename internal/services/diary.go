package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type DiaryService struct {
	store   *database.Store
	streaks *StreakService
	goals   *GoalsService
}

func NewDiaryService(store *database.Store, streaks *StreakService, goals *GoalsService) *DiaryService {
	return &DiaryService{store: store, streaks: streaks, goals: goals}
}

// Summarize builds the day view from four independent reads. It writes nothing.
func (s *DiaryService) Summarize(ctx context.Context, userID string, day models.CalendarDay) (*models.DiarySummary, error) {
	start := time.Now()
	defer func() { metrics.DiaryBuildDuration.Observe(time.Since(start).Seconds()) }()

	var (
		meals  []models.MealEntry
		water  []models.WaterEntry
		streak *models.StreakSummary
		goals  *models.Goals
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meals, err = listMeals(gctx, s.store, s.store.DB, userID, day)
		return err
	})
	g.Go(func() error {
		var err error
		water, err = listWater(gctx, s.store, s.store.DB, userID, day)
		return err
	})
	g.Go(func() error {
		state, found, err := s.streaks.lookup(gctx, s.store.DB, userID)
		if err != nil || !found {
			return err
		}
		summary := state.Summary()
		streak = &summary
		return nil
	})
	g.Go(func() error {
		var err error
		goals, err = s.goals.Get(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &models.DiarySummary{
		Date:   day,
		Meals:  groupMeals(meals),
		Totals: sumMeals(meals),
		Water:  models.DiaryWater{Entries: water},
		Streak: streak,
		Goals:  goals,
	}
	for _, w := range water {
		summary.Water.TotalML += w.AmountML
	}
	if goals != nil {
		summary.Water.GoalML = goals.WaterGoalML
	}
	return summary, nil
}

// groupMeals files entries by slot, keeping input order. Entries with a slot
// outside the four known ones are left out of every group.
func groupMeals(entries []models.MealEntry) models.DiaryMeals {
	grouped := models.DiaryMeals{
		Breakfast: []models.MealEntry{},
		Lunch:     []models.MealEntry{},
		Dinner:    []models.MealEntry{},
		Snack:     []models.MealEntry{},
	}
	for _, e := range entries {
		switch e.Meal {
		case models.MealBreakfast:
			grouped.Breakfast = append(grouped.Breakfast, e)
		case models.MealLunch:
			grouped.Lunch = append(grouped.Lunch, e)
		case models.MealDinner:
			grouped.Dinner = append(grouped.Dinner, e)
		case models.MealSnack:
			grouped.Snack = append(grouped.Snack, e)
		}
	}
	return grouped
}

// sumMeals totals every entry, grouped or not. Missing macros count as zero.
func sumMeals(entries []models.MealEntry) models.DiaryTotals {
	totals := models.DiaryTotals{
		Kcal:     decimal.Zero,
		ProteinG: decimal.Zero,
		CarbsG:   decimal.Zero,
		FatG:     decimal.Zero,
	}
	for _, e := range entries {
		totals.Kcal = totals.Kcal.Add(e.Kcal)
		totals.ProteinG = totals.ProteinG.Add(orZero(e.ProteinG))
		totals.CarbsG = totals.CarbsG.Add(orZero(e.CarbsG))
		totals.FatG = totals.FatG.Add(orZero(e.FatG))
	}
	return totals
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
