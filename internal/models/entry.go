package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals and macros are plain JSON numbers on the wire
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MealType is the slot a meal entry is filed under in the diary.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the recognized meal slots in diary order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// IsValid reports whether m is one of the four recognized meal slots.
func (m MealType) IsValid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// MealEntry is one logged food item. Macros are kept as decimals because the
// store returns NUMERIC values.
type MealEntry struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	LocalDate       CalendarDay         `json:"local_date"`
	LoggedAt        time.Time           `json:"logged_at"`
	Meal            MealType            `json:"meal"`
	FoodID          *string             `json:"food_id"`
	LabelSnapshot   string              `json:"label_snapshot"`
	ServingQuantity decimal.Decimal     `json:"serving_quantity"`
	ServingUnit     *string             `json:"serving_unit"`
	Kcal            decimal.Decimal     `json:"kcal"`
	ProteinG        decimal.NullDecimal `json:"protein_g"`
	CarbsG          decimal.NullDecimal `json:"carbs_g"`
	FatG            decimal.NullDecimal `json:"fat_g"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// WaterEntry is one logged drink.
type WaterEntry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	LocalDate CalendarDay `json:"local_date"`
	LoggedAt  time.Time   `json:"logged_at"`
	AmountML  int64       `json:"amount_ml"`
	CreatedAt time.Time   `json:"created_at"`
}
