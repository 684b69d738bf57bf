package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HealthDB pings the primary store with a short deadline.
func (a *API) HealthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.Store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("database health check failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", DB: "down"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", DB: string(a.Store.Dialect)})
}
