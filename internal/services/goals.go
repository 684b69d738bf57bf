package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type GoalsService struct {
	store *database.Store
}

func NewGoalsService(store *database.Store) *GoalsService {
	return &GoalsService{store: store}
}

// Get returns nil when the user never configured goals.
func (s *GoalsService) Get(ctx context.Context, userID string) (*models.Goals, error) {
	return s.lookup(ctx, s.store.DB, userID)
}

func (s *GoalsService) lookup(ctx context.Context, q DBTX, userID string) (*models.Goals, error) {
	var calorie, water sql.NullInt64
	err := q.QueryRowContext(ctx, s.store.Rebind(`
		SELECT calorie_goal, water_goal_ml FROM goals WHERE user_id = $1
	`), userID).Scan(&calorie, &water)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}

	g := &models.Goals{}
	if calorie.Valid {
		g.CalorieGoal = &calorie.Int64
	}
	if water.Valid {
		g.WaterGoalML = &water.Int64
	}
	return g, nil
}

// Put replaces both goals; a nil field clears that goal.
func (s *GoalsService) Put(ctx context.Context, userID string, goals models.Goals) (*models.Goals, error) {
	_, err := s.store.DB.ExecContext(ctx, s.store.Rebind(`
		INSERT INTO goals (user_id, calorie_goal, water_goal_ml, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			calorie_goal = EXCLUDED.calorie_goal,
			water_goal_ml = EXCLUDED.water_goal_ml,
			updated_at = EXCLUDED.updated_at
	`), userID, nullInt64(goals.CalorieGoal), nullInt64(goals.WaterGoalML), nowUTC())
	if err != nil {
		return nil, fmt.Errorf("put goals: %w", err)
	}
	return &goals, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
