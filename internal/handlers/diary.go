package handlers

import (
	"net/http"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

type DiaryResponse struct {
	Success bool                 `json:"success"`
	Diary   *models.DiarySummary `json:"diary"`
}

// GetDiary returns the day view for ?date=YYYY-MM-DD.
func (a *API) GetDiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, err := services.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	summary, err := a.Diary.Summarize(r.Context(), userID, day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DiaryResponse{Success: true, Diary: summary})
}
