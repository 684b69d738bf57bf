package handlers

import (
	"net/http"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type StreakResponse struct {
	Success          bool                `json:"success"`
	Current          int                 `json:"current"`
	Best             int                 `json:"best"`
	LastCreditedDate *models.CalendarDay `json:"last_credited_date"`
}

// GetStreak reports zeros for users that never logged anything.
func (a *API) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	state, err := a.Streaks.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := StreakResponse{Success: true, Current: state.Current, Best: state.Best}
	if !state.LastCreditedDay.IsZero() {
		last := state.LastCreditedDay
		resp.LastCreditedDate = &last
	}
	writeJSON(w, http.StatusOK, resp)
}
