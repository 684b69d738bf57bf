package handlers

import (
	"net/http"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required,max=64"`
}

type MeResponse struct {
	Success bool            `json:"success"`
	Profile *models.Profile `json:"profile"`
}

// GetMe returns the caller's profile; timezone is "UTC" until set.
func (a *API) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profile, err := a.Profiles.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Success: true, Profile: &profile})
}

// UpdateTimezone stores a validated IANA zone. Entries already logged keep
// the local date they were filed under.
func (a *API) UpdateTimezone(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req UpdateTimezoneRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := a.Profiles.SetTimezone(r.Context(), userID, req.Timezone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Success: true, Profile: &profile})
}
