package routes

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/nutrilog-backend/internal/database"
	"github.com/AnshRaj112/nutrilog-backend/internal/handlers"
	"github.com/AnshRaj112/nutrilog-backend/internal/middleware"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, limit int) http.Handler {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "nutrilog.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hub := services.NewEventHub()
	api := handlers.NewAPI(store, hub, services.NewLocalPublisher(hub), nil, []string{"http://localhost:3000"})

	r := chi.NewRouter()
	SetupRoutes(r, api, Options{
		Auth:      middleware.AuthConfig{Secret: testSecret, Bypass: true},
		Limiter:   middleware.NewLocalLimiter(limit),
		RateLimit: limit,
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, user string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.TestUserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func meal(loggedAt, mealType string, kcal float64) map[string]interface{} {
	return map[string]interface{}{
		"logged_at":        loggedAt,
		"meal":             mealType,
		"label_snapshot":   "Oatmeal",
		"serving_quantity": 1,
		"kcal":             kcal,
		"protein_g":        10.5,
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, 100)

	rec, body := do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("/health = %d %v", rec.Code, body)
	}
	rec, body = do(t, h, http.MethodGet, "/health/db", "", nil)
	if rec.Code != http.StatusOK || body["db"] != "sqlite" {
		t.Fatalf("/health/db = %d %v", rec.Code, body)
	}
}

func TestMealLifecycleAndDiary(t *testing.T) {
	h := newTestServer(t, 100)

	rec, _ := do(t, h, http.MethodPatch, "/api/me/timezone", "alice", map[string]string{"timezone": "Asia/Kolkata"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set timezone = %d %s", rec.Code, rec.Body.String())
	}

	// 20:00Z on the 9th is 01:30 on the 10th in Kolkata
	rec, body := do(t, h, http.MethodPost, "/api/meals", "alice", meal("2026-03-09T20:00:00Z", "breakfast", 320))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create meal = %d %s", rec.Code, rec.Body.String())
	}
	entry := body["entry"].(map[string]interface{})
	if entry["local_date"] != "2026-03-10" {
		t.Errorf("local_date = %v, want 2026-03-10", entry["local_date"])
	}
	streak := body["streak"].(map[string]interface{})
	if streak["current"] != float64(1) {
		t.Errorf("streak = %v", streak)
	}
	id := entry["id"].(string)

	rec, _ = do(t, h, http.MethodPost, "/api/water", "alice", map[string]interface{}{"amount_ml": 500, "logged_at": "2026-03-10T04:00:00Z"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create water = %d %s", rec.Code, rec.Body.String())
	}

	rec, body = do(t, h, http.MethodGet, "/api/diary?date=2026-03-10", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("diary = %d %s", rec.Code, rec.Body.String())
	}
	diary := body["diary"].(map[string]interface{})
	totals := diary["totals"].(map[string]interface{})
	if totals["kcal"] != float64(320) || totals["protein_g"] != 10.5 {
		t.Errorf("totals = %v", totals)
	}
	water := diary["water"].(map[string]interface{})
	if water["total_ml"] != float64(500) {
		t.Errorf("water = %v", water)
	}
	if diary["goals"] != nil {
		t.Errorf("goals = %v, want null", diary["goals"])
	}
	breakfast := diary["meals"].(map[string]interface{})["breakfast"].([]interface{})
	if len(breakfast) != 1 {
		t.Errorf("breakfast = %v", breakfast)
	}

	rec, _ = do(t, h, http.MethodPatch, "/api/meals/"+id, "alice", map[string]interface{}{"kcal": 400})
	if rec.Code != http.StatusOK {
		t.Fatalf("update meal = %d %s", rec.Code, rec.Body.String())
	}

	// Another user cannot see or touch the entry
	rec, _ = do(t, h, http.MethodDelete, "/api/meals/"+id, "bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", rec.Code)
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/meals/"+id, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete meal = %d %s", rec.Code, rec.Body.String())
	}
	rec, body = do(t, h, http.MethodGet, "/api/meals?date=2026-03-10", "alice", nil)
	if rec.Code != http.StatusOK || len(body["entries"].([]interface{})) != 0 {
		t.Errorf("list after delete = %d %v", rec.Code, body)
	}

	// The credited day survives the delete
	rec, body = do(t, h, http.MethodGet, "/api/streak", "alice", nil)
	if rec.Code != http.StatusOK || body["current"] != float64(1) || body["last_credited_date"] != "2026-03-10" {
		t.Errorf("streak = %d %v", rec.Code, body)
	}
}

func TestStreakAndGoalsDefaults(t *testing.T) {
	h := newTestServer(t, 100)

	rec, body := do(t, h, http.MethodGet, "/api/streak", "new-user", nil)
	if rec.Code != http.StatusOK || body["current"] != float64(0) || body["best"] != float64(0) || body["last_credited_date"] != nil {
		t.Errorf("streak = %d %v", rec.Code, body)
	}

	rec, body = do(t, h, http.MethodGet, "/api/me", "new-user", nil)
	profile := body["profile"].(map[string]interface{})
	if rec.Code != http.StatusOK || profile["timezone"] != "UTC" {
		t.Errorf("me = %d %v", rec.Code, body)
	}

	rec, body = do(t, h, http.MethodPut, "/api/goals", "new-user", map[string]interface{}{"calorie_goal": 2000})
	if rec.Code != http.StatusOK {
		t.Fatalf("put goals = %d %s", rec.Code, rec.Body.String())
	}
	goals := body["goals"].(map[string]interface{})
	if goals["calorie_goal"] != float64(2000) || goals["water_goal_ml"] != nil {
		t.Errorf("goals = %v", goals)
	}
}

func TestRequestErrors(t *testing.T) {
	h := newTestServer(t, 100)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		want   int
	}{
		{"no credentials", http.MethodGet, "/api/streak", "", nil, http.StatusUnauthorized},
		{"missing date", http.MethodGet, "/api/diary", "u", nil, http.StatusBadRequest},
		{"malformed date", http.MethodGet, "/api/meals?date=2026-3-1", "u", nil, http.StatusBadRequest},
		{"impossible date", http.MethodGet, "/api/water?date=2026-02-30", "u", nil, http.StatusBadRequest},
		{"unknown meal type", http.MethodPost, "/api/meals", "u", meal("2026-03-09T08:00:00Z", "brunch", 100), http.StatusBadRequest},
		{"negative kcal", http.MethodPost, "/api/meals", "u", meal("2026-03-09T08:00:00Z", "lunch", -1), http.StatusBadRequest},
		{"zero water", http.MethodPost, "/api/water", "u", map[string]int{"amount_ml": 0}, http.StatusBadRequest},
		{"water over int32", http.MethodPost, "/api/water", "u", map[string]int64{"amount_ml": 1 << 31}, http.StatusBadRequest},
		{"malformed food_id on update", http.MethodPatch, "/api/meals/6f1c4b1e-8d2a-4c8e-9a53-0b7d0e5b2f11", "u", map[string]string{"food_id": "apple"}, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/water", "u", nil, http.StatusBadRequest},
		{"bad timezone", http.MethodPatch, "/api/me/timezone", "u", map[string]string{"timezone": "Mars/Olympus"}, http.StatusBadRequest},
		{"non-uuid id", http.MethodDelete, "/api/meals/not-a-uuid", "u", nil, http.StatusNotFound},
		{"unknown id", http.MethodDelete, "/api/water/6f1c4b1e-8d2a-4c8e-9a53-0b7d0e5b2f11", "u", nil, http.StatusNotFound},
		{"negative goal", http.MethodPut, "/api/goals", "u", map[string]int{"water_goal_ml": -5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	h := newTestServer(t, 100)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Profile struct {
			UserID string `json:"user_id"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Profile.UserID != "carol" {
		t.Errorf("user_id = %q, want carol", body.Profile.UserID)
	}
}

func TestRateLimitedPerUser(t *testing.T) {
	h := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodGet, "/api/streak", "busy", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec, _ := do(t, h, http.MethodGet, "/api/streak", "busy", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Limits are keyed per user
	if rec, _ := do(t, h, http.MethodGet, "/api/streak", "idle", nil); rec.Code != http.StatusOK {
		t.Errorf("other user = %d, want 200", rec.Code)
	}
}

func TestAnonymousRequestsAreRateLimitedPerIP(t *testing.T) {
	h := newTestServer(t, 2)

	// httptest requests share one RemoteAddr
	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodGet, "/api/streak", "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("anonymous request %d = %d, want 401", i, rec.Code)
		}
	}
	if rec, _ := do(t, h, http.MethodGet, "/api/streak", "", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third anonymous request = %d, want 429", rec.Code)
	}

	// Authenticated users keep their own budget
	if rec, _ := do(t, h, http.MethodGet, "/api/streak", "dana", nil); rec.Code != http.StatusOK {
		t.Errorf("authenticated user = %d, want 200", rec.Code)
	}
}

func TestActivityWithoutMongo(t *testing.T) {
	h := newTestServer(t, 100)

	rec, body := do(t, h, http.MethodGet, "/api/activity?limit=10", "u", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if items, ok := body["activity"].([]interface{}); !ok || len(items) != 0 || body["has_more"] != false {
		t.Errorf("activity = %v", body)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/activity?before=yesterday", "u", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad before = %d, want 400", rec.Code)
	}
}
