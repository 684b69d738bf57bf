package models

import "github.com/shopspring/decimal"

// DiaryMeals holds a day's meal entries per slot, each ordered by logged_at.
type DiaryMeals struct {
	Breakfast []MealEntry `json:"breakfast"`
	Lunch     []MealEntry `json:"lunch"`
	Dinner    []MealEntry `json:"dinner"`
	Snack     []MealEntry `json:"snack"`
}

// DiaryTotals sums every meal entry of the day, grouped or not.
type DiaryTotals struct {
	Kcal     decimal.Decimal `json:"kcal"`
	ProteinG decimal.Decimal `json:"protein_g"`
	CarbsG   decimal.Decimal `json:"carbs_g"`
	FatG     decimal.Decimal `json:"fat_g"`
}

type DiaryWater struct {
	TotalML int64        `json:"total_ml"`
	GoalML  *int64       `json:"goal_ml"`
	Entries []WaterEntry `json:"entries"`
}

// DiarySummary is rebuilt from the store on every read.
type DiarySummary struct {
	Date   CalendarDay    `json:"date"`
	Meals  DiaryMeals     `json:"meals"`
	Totals DiaryTotals    `json:"totals"`
	Water  DiaryWater     `json:"water"`
	Streak *StreakSummary `json:"streak"`
	Goals  *Goals         `json:"goals"`
}
