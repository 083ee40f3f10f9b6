package services

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Form field parsing. Each helper returns a ValidationError on malformed
// input so handlers can flash the message and redirect.

func urlID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, NewValidationError("Invalid record id")
	}
	return id, nil
}

func formInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PostFormValue(name))
	if err != nil {
		return 0, NewValidationError("Field %q must be a whole number", name)
	}
	return v, nil
}

// formDecimal parses a monetary field and normalizes it to 2 decimal places.
func formDecimal(r *http.Request, name string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.PostFormValue(name))
	if err != nil {
		return decimal.Zero, NewValidationError("Field %q must be a decimal amount", name)
	}
	return d.Round(2), nil
}

// formDate parses a YYYY-MM-DD field.
func formDate(r *http.Request, name string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", r.PostFormValue(name))
	if err != nil {
		return time.Time{}, NewValidationError("Field %q must be a date in YYYY-MM-DD format", name)
	}
	return t, nil
}

// formMonth parses a YYYY-MM field into the first day of that month.
func formMonth(r *http.Request, name string) (time.Time, error) {
	t, err := time.Parse("2006-01", r.PostFormValue(name))
	if err != nil {
		return time.Time{}, NewValidationError("Field %q must be a month in YYYY-MM format", name)
	}
	return t, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return 0, NewValidationError("Parameter %q must be a positive number", name)
	}
	return v, nil
}
