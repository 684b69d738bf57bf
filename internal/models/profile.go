package models

import "time"

// DefaultTimezone is used for users that never set one.
const DefaultTimezone = "UTC"

// Profile holds the per-user settings this service owns.
type Profile struct {
	UserID    string    `json:"user_id"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Goals are optional daily targets; nil means not configured.
type Goals struct {
	CalorieGoal *int64 `json:"calorie_goal"`
	WaterGoalML *int64 `json:"water_goal_ml"`
}
