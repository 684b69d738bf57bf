package handlers

import (
	"net/http"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

// PutGoalsRequest replaces both goals; an omitted goal is cleared.
type PutGoalsRequest struct {
	CalorieGoal *int64 `json:"calorie_goal" validate:"omitempty,gte=0,lte=20000"`
	WaterGoalML *int64 `json:"water_goal_ml" validate:"omitempty,gte=0,lte=20000"`
}

type GoalsResponse struct {
	Success bool          `json:"success"`
	Goals   *models.Goals `json:"goals"`
}

func (a *API) GetGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	goals, err := a.Goals.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GoalsResponse{Success: true, Goals: goals})
}

func (a *API) PutGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req PutGoalsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	goals, err := a.Goals.Put(r.Context(), userID, models.Goals{CalorieGoal: req.CalorieGoal, WaterGoalML: req.WaterGoalML})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GoalsResponse{Success: true, Goals: goals})
}
