package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
	"github.com/AnshRaj112/nutrilog-backend/internal/services"
)

// CreateMealRequest is the POST /api/meals body. local_date is accepted from
// older clients and checked for format, but the stored date always comes from
// logged_at and the user's timezone.
type CreateMealRequest struct {
	LocalDate       *string          `json:"local_date" validate:"omitempty,yyyymmdd"`
	LoggedAt        string           `json:"logged_at" validate:"required,rfc3339"`
	Meal            string           `json:"meal" validate:"required,mealtype"`
	FoodID          *string          `json:"food_id" validate:"omitempty,uuid"`
	LabelSnapshot   string           `json:"label_snapshot" validate:"required,min=1,max=200"`
	ServingQuantity *decimal.Decimal `json:"serving_quantity" validate:"required,gt=0"`
	ServingUnit     *string          `json:"serving_unit" validate:"omitempty,max=50"`
	Kcal            *decimal.Decimal `json:"kcal" validate:"required,gte=0"`
	ProteinG        *decimal.Decimal `json:"protein_g" validate:"omitempty,gte=0"`
	CarbsG          *decimal.Decimal `json:"carbs_g" validate:"omitempty,gte=0"`
	FatG            *decimal.Decimal `json:"fat_g" validate:"omitempty,gte=0"`
}

type UpdateMealRequest struct {
	LoggedAt        *string          `json:"logged_at" validate:"omitempty,rfc3339"`
	Meal            *string          `json:"meal" validate:"omitempty,mealtype"`
	FoodID          *string          `json:"food_id" validate:"omitempty,uuid"`
	LabelSnapshot   *string          `json:"label_snapshot" validate:"omitempty,min=1,max=200"`
	ServingQuantity *decimal.Decimal `json:"serving_quantity" validate:"omitempty,gt=0"`
	ServingUnit     *string          `json:"serving_unit" validate:"omitempty,max=50"`
	Kcal            *decimal.Decimal `json:"kcal" validate:"omitempty,gte=0"`
	ProteinG        *decimal.Decimal `json:"protein_g" validate:"omitempty,gte=0"`
	CarbsG          *decimal.Decimal `json:"carbs_g" validate:"omitempty,gte=0"`
	FatG            *decimal.Decimal `json:"fat_g" validate:"omitempty,gte=0"`
}

type MealResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Entry   *models.MealEntry     `json:"entry"`
	Streak  *models.StreakSummary `json:"streak,omitempty"`
}

type MealsResponse struct {
	Success bool               `json:"success"`
	Date    models.CalendarDay `json:"date"`
	Entries []models.MealEntry `json:"entries"`
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

// CreateMeal logs a meal and credits the streak for its local day.
func (a *API) CreateMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateMealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	loggedAt, err := time.Parse(time.RFC3339Nano, req.LoggedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "logged_at must be an RFC 3339 timestamp")
		return
	}

	res, err := a.Meals.Create(r.Context(), userID, services.CreateMealInput{
		LoggedAt:        loggedAt,
		Meal:            models.MealType(req.Meal),
		FoodID:          req.FoodID,
		LabelSnapshot:   req.LabelSnapshot,
		ServingQuantity: *req.ServingQuantity,
		ServingUnit:     req.ServingUnit,
		Kcal:            *req.Kcal,
		ProteinG:        nullDecimal(req.ProteinG),
		CarbsG:          nullDecimal(req.CarbsG),
		FatG:            nullDecimal(req.FatG),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, MealResponse{
		Success: true,
		Message: "Meal logged",
		Entry:   &res.Entry,
		Streak:  &res.Streak,
	})
}

// ListMeals returns the meals of ?date=YYYY-MM-DD.
func (a *API) ListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	day, err := services.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, err := a.Meals.List(r.Context(), userID, day)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MealsResponse{Success: true, Date: day, Entries: entries})
}

func (a *API) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req UpdateMealRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := services.UpdateMealInput{
		FoodID:          req.FoodID,
		LabelSnapshot:   req.LabelSnapshot,
		ServingQuantity: req.ServingQuantity,
		ServingUnit:     req.ServingUnit,
		Kcal:            req.Kcal,
		ProteinG:        req.ProteinG,
		CarbsG:          req.CarbsG,
		FatG:            req.FatG,
	}
	if req.LoggedAt != nil {
		loggedAt, err := time.Parse(time.RFC3339Nano, *req.LoggedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "logged_at must be an RFC 3339 timestamp")
			return
		}
		in.LoggedAt = &loggedAt
	}
	if req.Meal != nil {
		meal := models.MealType(*req.Meal)
		in.Meal = &meal
	}

	entry, err := a.Meals.Update(r.Context(), userID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MealResponse{Success: true, Message: "Meal updated", Entry: entry})
}

func (a *API) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := a.Meals.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Meal deleted"})
}

// entryID reads the {id} path param. Ids are UUIDs; anything else cannot
// exist, so it is reported as 404.
func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return "", false
	}
	return id.String(), true
}
