package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/models"
)

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths advances a first-of-month date by n calendar months.
func addMonths(month time.Time, n int) time.Time {
	return time.Date(month.Year(), month.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// monthlyAmount is the per-installment value shown on the purchase row:
// total divided by count, rounded to cents.
func monthlyAmount(total decimal.Decimal, count int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// buildSchedule produces the installment rows for a purchase. Each
// installment falls one calendar month after the previous one, keeping the
// purchase day but clamping it to the length of the target month (a
// purchase on the 31st falls due on the 30th or 28th/29th in shorter
// months). Every installment carries the rounded monthly amount except the
// last, which absorbs the rounding difference so the amounts sum exactly to
// the total.
func buildSchedule(purchaseDate time.Time, firstMonth time.Time, total decimal.Decimal, count int) []*models.Installment {
	per := monthlyAmount(total, count)
	schedule := make([]*models.Installment, 0, count)
	for n := 1; n <= count; n++ {
		due := addMonths(firstMonth, n-1)
		day := purchaseDate.Day()
		if max := daysInMonth(due.Year(), due.Month()); day > max {
			day = max
		}
		amount := per
		if n == count {
			amount = total.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		schedule = append(schedule, &models.Installment{
			Number:   n,
			DueDay:   day,
			DueMonth: int(due.Month()),
			DueYear:  due.Year(),
			Amount:   amount,
		})
	}
	return schedule
}
