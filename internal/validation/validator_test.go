package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type sampleRequest struct {
	Date     string           `json:"date" validate:"required,yyyymmdd"`
	LoggedAt string           `json:"logged_at" validate:"required,rfc3339"`
	Meal     string           `json:"meal" validate:"required,mealtype"`
	Quantity decimal.Decimal  `json:"serving_quantity" validate:"gt=0"`
	Protein  *decimal.Decimal `json:"protein_g" validate:"omitempty,gte=0"`
	Label    string           `json:"label_snapshot" validate:"required,min=1,max=10"`
}

func validSample() sampleRequest {
	return sampleRequest{
		Date:     "2026-03-09",
		LoggedAt: "2026-03-09T07:30:00+05:30",
		Meal:     "lunch",
		Quantity: decimal.RequireFromString("1.5"),
		Label:    "Oats",
	}
}

func TestValidateStruct(t *testing.T) {
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name      string
		mutate    func(r *sampleRequest)
		wantField string
		wantTag   string
	}{
		{name: "valid", mutate: func(r *sampleRequest) {}},
		{name: "impossible date", mutate: func(r *sampleRequest) { r.Date = "2026-02-30" }, wantField: "date", wantTag: "yyyymmdd"},
		{name: "date with time", mutate: func(r *sampleRequest) { r.Date = "2026-03-09T00:00:00Z" }, wantField: "date", wantTag: "yyyymmdd"},
		{name: "timestamp without offset", mutate: func(r *sampleRequest) { r.LoggedAt = "2026-03-09 07:30" }, wantField: "logged_at", wantTag: "rfc3339"},
		{name: "unknown meal", mutate: func(r *sampleRequest) { r.Meal = "brunch" }, wantField: "meal", wantTag: "mealtype"},
		{name: "zero quantity", mutate: func(r *sampleRequest) { r.Quantity = decimal.Zero }, wantField: "serving_quantity", wantTag: "gt"},
		{name: "negative macro", mutate: func(r *sampleRequest) { r.Protein = &negative }, wantField: "protein_g", wantTag: "gte"},
		{name: "label too long", mutate: func(r *sampleRequest) { r.Label = strings.Repeat("x", 11) }, wantField: "label_snapshot", wantTag: "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSample()
			tt.mutate(&req)

			err := ValidateStruct(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *RequestValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected one failed field, got %+v", verr.Fields)
			}
			if got := verr.Fields[0]; got.Field != tt.wantField || got.Tag != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", got.Field, got.Tag, tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestErrorJoinsMessages(t *testing.T) {
	req := validSample()
	req.Meal = ""
	req.Label = ""

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "meal is required") || !strings.Contains(msg, "label_snapshot is required") {
		t.Errorf("unexpected message %q", msg)
	}
}
