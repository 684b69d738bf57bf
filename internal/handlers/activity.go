package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

type ActivityResponse struct {
	Success  bool                      `json:"success"`
	Activity []services.ActivityRecord `json:"activity"`
	HasMore  bool                      `json:"has_more"`
}

// GetActivity pages the caller's entry history, newest first. ?before takes
// the timestamp of the last record seen.
func (a *API) GetActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		before = &t
	}
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	records, hasMore, err := a.Activity.Recent(r.Context(), userID, before, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activity: records, HasMore: hasMore})
}
