package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildSchedule(t *testing.T) {
	t.Run("even split over twelve months", func(t *testing.T) {
		purchaseDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		firstMonth := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		schedule := buildSchedule(purchaseDate, firstMonth, decimal.RequireFromString("1200.00"), 12)

		assert.Len(t, schedule, 12)
		for n, inst := range schedule {
			assert.Equal(t, n+1, inst.Number)
			assert.Equal(t, 15, inst.DueDay)
			assert.True(t, inst.Amount.Equal(decimal.RequireFromString("100.00")))
		}
		assert.Equal(t, 1, schedule[0].DueMonth)
		assert.Equal(t, 2024, schedule[0].DueYear)
		assert.Equal(t, 12, schedule[11].DueMonth)
		assert.Equal(t, 2024, schedule[11].DueYear)
	})

	t.Run("last installment absorbs the rounding remainder", func(t *testing.T) {
		purchaseDate := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		firstMonth := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		total := decimal.RequireFromString("100.00")

		schedule := buildSchedule(purchaseDate, firstMonth, total, 3)

		assert.True(t, schedule[0].Amount.Equal(decimal.RequireFromString("33.33")))
		assert.True(t, schedule[1].Amount.Equal(decimal.RequireFromString("33.33")))
		assert.True(t, schedule[2].Amount.Equal(decimal.RequireFromString("33.34")))

		sum := decimal.Zero
		for _, inst := range schedule {
			sum = sum.Add(inst.Amount)
		}
		assert.True(t, sum.Equal(total))
	})

	t.Run("day 31 clamps to shorter months", func(t *testing.T) {
		purchaseDate := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		firstMonth := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		schedule := buildSchedule(purchaseDate, firstMonth, decimal.RequireFromString("400.00"), 4)

		assert.Equal(t, 31, schedule[0].DueDay) // January
		assert.Equal(t, 29, schedule[1].DueDay) // leap February
		assert.Equal(t, 31, schedule[2].DueDay) // March
		assert.Equal(t, 30, schedule[3].DueDay) // April
	})

	t.Run("schedule crosses the year boundary", func(t *testing.T) {
		purchaseDate := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
		firstMonth := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

		schedule := buildSchedule(purchaseDate, firstMonth, decimal.RequireFromString("300.00"), 3)

		assert.Equal(t, 11, schedule[0].DueMonth)
		assert.Equal(t, 2025, schedule[0].DueYear)
		assert.Equal(t, 12, schedule[1].DueMonth)
		assert.Equal(t, 2025, schedule[1].DueYear)
		assert.Equal(t, 1, schedule[2].DueMonth)
		assert.Equal(t, 2026, schedule[2].DueYear)
	})

	t.Run("single installment carries the full total", func(t *testing.T) {
		purchaseDate := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
		firstMonth := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		total := decimal.RequireFromString("99.99")

		schedule := buildSchedule(purchaseDate, firstMonth, total, 1)

		assert.Len(t, schedule, 1)
		assert.True(t, schedule[0].Amount.Equal(total))
	})
}

func TestAddMonths(t *testing.T) {
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), addMonths(jan, 0))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), addMonths(jan, 11))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), addMonths(jan, 12))
	assert.Equal(t, time.Date(2028, 7, 1, 0, 0, 0, 0, time.UTC), addMonths(jan, 30))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, daysInMonth(2026, time.January))
	assert.Equal(t, 28, daysInMonth(2026, time.February))
	assert.Equal(t, 29, daysInMonth(2024, time.February))
	assert.Equal(t, 30, daysInMonth(2026, time.April))
	assert.Equal(t, 31, daysInMonth(2026, time.December))
}
