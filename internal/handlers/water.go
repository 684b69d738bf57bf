package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

type CreateWaterRequest struct {
	AmountML int64   `json:"amount_ml" validate:"gte=1,lte=2147483647"`
	LoggedAt *string `json:"logged_at" validate:"omitempty,rfc3339"`
}

type WaterResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Entry   *models.WaterEntry    `json:"entry"`
	Streak  *models.StreakSummary `json:"streak,omitempty"`
}

type WaterListResponse struct {
	Success bool                `json:"success"`
	Date    models.CalendarDay  `json:"date"`
	TotalML int64               `json:"total_ml"`
	Entries []models.WaterEntry `json:"entries"`
}

// CreateWater logs a drink; logged_at defaults to now.
func (a *API) CreateWater(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateWaterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	var loggedAt *time.Time
	if req.LoggedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *req.LoggedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "logged_at must be an RFC 3339 timestamp")
			return
		}
		loggedAt = &t
	}

	res, err := a.Water.Create(r.Context(), userID, req.AmountML, loggedAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, WaterResponse{
		Success: true,
		Message: "Water logged",
		Entry:   &res.Entry,
		Streak:  &res.Streak,
	})
}

func (a *API) ListWater(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, err := services.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, err := a.Water.List(r.Context(), userID, day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := WaterListResponse{Success: true, Date: day, Entries: entries}
	for _, e := range entries {
		resp.TotalML += e.AmountML
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) DeleteWater(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := a.Water.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Water entry deleted"})
}
