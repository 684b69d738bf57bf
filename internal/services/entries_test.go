package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type testServices struct {
	store    *database.Store
	profiles *ProfileService
	streaks  *StreakService
	goals    *GoalsService
	meals    *MealService
	water    *WaterService
	diary    *DiaryService
	hub      *EventHub
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newTestStore(t)
	hub := NewEventHub()
	feed := NewChangeFeed(NewLocalPublisher(hub), nil)

	profiles := NewProfileService(store)
	streaks := NewStreakService(store)
	goals := NewGoalsService(store)
	water := NewWaterService(store, profiles, streaks, feed)
	water.now = func() time.Time { return testNow }

	return &testServices{
		store:    store,
		profiles: profiles,
		streaks:  streaks,
		goals:    goals,
		meals:    NewMealService(store, profiles, streaks, feed),
		water:    water,
		diary:    NewDiaryService(store, streaks, goals),
		hub:      hub,
	}
}

func mealInput(t *testing.T, loggedAt string, meal models.MealType, kcal string) CreateMealInput {
	t.Helper()
	return CreateMealInput{
		LoggedAt:        mustInstant(t, loggedAt),
		Meal:            meal,
		LabelSnapshot:   "Test food",
		ServingQuantity: decimal.NewFromInt(1),
		Kcal:            decimal.RequireFromString(kcal),
	}
}

func TestMealCreateDerivesLocalDateAndCredits(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	if _, err := s.profiles.SetTimezone(ctx, "u", "Asia/Kolkata"); err != nil {
		t.Fatal(err)
	}

	// 19:00Z is 00:30 the next day in Kolkata
	res, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T19:00:00Z", models.MealBreakfast, "350"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Entry.LocalDate.String() != "2026-03-10" {
		t.Errorf("local date = %s, want 2026-03-10", res.Entry.LocalDate)
	}
	if res.Streak.Current != 1 || res.Streak.Best != 1 {
		t.Errorf("streak = %+v, want {1,1}", res.Streak)
	}

	// A second entry on the same local day does not advance the streak
	res, err = s.meals.Create(ctx, "u", mealInput(t, "2026-03-10T05:00:00Z", models.MealLunch, "400"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Current != 1 {
		t.Errorf("streak after same-day entry = %d, want 1", res.Streak.Current)
	}

	list, err := s.meals.List(ctx, "u", day(t, "2026-03-10"))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d entries, want 2", len(list))
	}
	if !list[0].Kcal.Equal(decimal.NewFromInt(350)) || list[0].Meal != models.MealBreakfast {
		t.Errorf("first entry = %+v", list[0])
	}
}

func TestMealAndWaterShareStreakDay(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	if _, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-08T12:00:00Z", models.MealDinner, "500")); err != nil {
		t.Fatal(err)
	}
	// testNow is 2026-03-09 12:00 UTC
	res, err := s.water.Create(ctx, "u", 250, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.LocalDate.String() != "2026-03-09" {
		t.Errorf("water local date = %s", res.Entry.LocalDate)
	}
	if res.Streak.Current != 2 || res.Streak.Best != 2 {
		t.Errorf("streak = %+v, want {2,2}", res.Streak)
	}
}

func TestWaterCreateRejectsOutOfRangeAmounts(t *testing.T) {
	s := newTestServices(t)
	for _, amount := range []int64{0, -250, 1 << 31} {
		if _, err := s.water.Create(context.Background(), "u", amount, nil); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestEntriesOwnership(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	meal, err := s.meals.Create(ctx, "owner", mealInput(t, "2026-03-09T08:00:00Z", models.MealBreakfast, "100"))
	if err != nil {
		t.Fatal(err)
	}
	water, err := s.water.Create(ctx, "owner", 300, nil)
	if err != nil {
		t.Fatal(err)
	}

	label := "stolen"
	if _, err := s.meals.Update(ctx, "intruder", meal.Entry.ID, UpdateMealInput{LabelSnapshot: &label}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update by other user: %v, want ErrNotFound", err)
	}
	if err := s.meals.Delete(ctx, "intruder", meal.Entry.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("meal delete by other user: %v, want ErrNotFound", err)
	}
	if err := s.water.Delete(ctx, "intruder", water.Entry.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("water delete by other user: %v, want ErrNotFound", err)
	}

	if err := s.meals.Delete(ctx, "owner", meal.Entry.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if err := s.meals.Delete(ctx, "owner", meal.Entry.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v, want ErrNotFound", err)
	}
}

func TestDeleteKeepsStreak(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	res, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T08:00:00Z", models.MealBreakfast, "100"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.meals.Delete(ctx, "u", res.Entry.ID); err != nil {
		t.Fatal(err)
	}

	state, err := s.streaks.Get(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != 1 || state.Best != 1 {
		t.Errorf("streak after delete = {%d,%d}, want {1,1}", state.Current, state.Best)
	}

	// Logging again on the same day is already credited
	res, err = s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T09:00:00Z", models.MealLunch, "100"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Current != 1 {
		t.Errorf("streak = %d, want 1", res.Streak.Current)
	}
}

func TestMealUpdateMovesLocalDate(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	res, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T08:00:00Z", models.MealBreakfast, "100"))
	if err != nil {
		t.Fatal(err)
	}

	moved := mustInstant(t, "2026-03-07T20:00:00Z")
	kcal := decimal.RequireFromString("120.5")
	updated, err := s.meals.Update(ctx, "u", res.Entry.ID, UpdateMealInput{LoggedAt: &moved, Kcal: &kcal})
	if err != nil {
		t.Fatal(err)
	}
	if updated.LocalDate.String() != "2026-03-07" {
		t.Errorf("local date = %s, want 2026-03-07", updated.LocalDate)
	}
	if !updated.Kcal.Equal(kcal) {
		t.Errorf("kcal = %s, want 120.5", updated.Kcal)
	}

	list, err := s.meals.List(ctx, "u", day(t, "2026-03-07"))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("entries on new day = %d, want 1", len(list))
	}

	// Updates never credit: the streak still points at the original day
	state, _ := s.streaks.Get(ctx, "u")
	if state.LastCreditedDay.String() != "2026-03-09" {
		t.Errorf("last credited = %s, want 2026-03-09", state.LastCreditedDay)
	}
}

func TestCreatePublishesEvents(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	conn := &recordingConn{}
	sub := s.hub.Register("u", conn)
	defer s.hub.Unregister(sub)

	if _, err := s.water.Create(ctx, "u", 200, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.water.Create(ctx, "u", 200, nil); err != nil {
		t.Fatal(err)
	}

	events := conn.waitFor(t, 3)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []string{EventEntryCreated, EventStreakCredited, EventEntryCreated}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
	if events[1].Streak == nil || events[1].Streak.Current != 1 {
		t.Errorf("streak event payload = %+v", events[1].Streak)
	}
}

func TestMealUpdateSetsFoodID(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	res, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T08:00:00Z", models.MealBreakfast, "250"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.FoodID != nil {
		t.Fatalf("food_id = %v, want nil", *res.Entry.FoodID)
	}

	foodID := "0b9f2c3e-5a41-4d7e-8c11-6a2f9e4b7d10"
	updated, err := s.meals.Update(ctx, "u", res.Entry.ID, UpdateMealInput{FoodID: &foodID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FoodID == nil || *updated.FoodID != foodID {
		t.Errorf("updated food_id = %v, want %s", updated.FoodID, foodID)
	}

	list, err := s.meals.List(ctx, "u", day(t, "2026-03-09"))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].FoodID == nil || *list[0].FoodID != foodID {
		t.Errorf("stored entry = %+v", list)
	}
	if !list[0].Kcal.Equal(decimal.NewFromInt(250)) {
		t.Errorf("kcal changed to %s", list[0].Kcal)
	}
}

func TestCreateRollsBackWhenCreditFails(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	// Admission succeeds, the counter write then fails
	if _, err := s.store.DB.Exec(`DROP TABLE streaks`); err != nil {
		t.Fatal(err)
	}

	if _, err := s.meals.Create(ctx, "u", mealInput(t, "2026-03-09T08:00:00Z", models.MealLunch, "500")); err == nil {
		t.Fatal("meal create succeeded without a streaks table")
	}
	if _, err := s.water.Create(ctx, "u", 300, nil); err == nil {
		t.Fatal("water create succeeded without a streaks table")
	}

	for _, table := range []string{"meal_entries", "water_entries", "streak_credits"} {
		var n int
		if err := s.store.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after a failed create, want 0", table, n)
		}
	}
}
