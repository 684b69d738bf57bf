package handlers

import (
	"net/http"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/middleware"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

// API holds what the HTTP handlers depend on.
type API struct {
	Store    *database.Store
	Meals    *services.MealService
	Water    *services.WaterService
	Diary    *services.DiaryService
	Streaks  *services.StreakService
	Goals    *services.GoalsService
	Profiles *services.ProfileService
	Activity services.ActivityLog
	Hub      *services.EventHub
	// AllowedOrigins is checked on WebSocket upgrades
	AllowedOrigins []string
}

// NewAPI wires the services on top of store. publisher and activity may be
// the local and no-op implementations.
func NewAPI(store *database.Store, hub *services.EventHub, publisher services.Publisher, activity services.ActivityLog, allowedOrigins []string) *API {
	if activity == nil {
		activity = services.NopActivityLog{}
	}
	feed := services.NewChangeFeed(publisher, activity)
	profiles := services.NewProfileService(store)
	streaks := services.NewStreakService(store)
	goals := services.NewGoalsService(store)

	return &API{
		Store:          store,
		Meals:          services.NewMealService(store, profiles, streaks, feed),
		Water:          services.NewWaterService(store, profiles, streaks, feed),
		Diary:          services.NewDiaryService(store, streaks, goals),
		Streaks:        streaks,
		Goals:          goals,
		Profiles:       profiles,
		Activity:       activity,
		Hub:            hub,
		AllowedOrigins: allowedOrigins,
	}
}

// requireUser returns the authenticated user, writing 401 when absent.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}
