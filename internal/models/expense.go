package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense/revenue type kinds.
const (
	TypeExpense = "Expense"
	TypeRevenue = "Revenue"
)

// ExpenseRevenueType is a budget line label (rent, energy, reimbursement).
type ExpenseRevenueType struct {
	ID     int    `db:"id"`
	UserID int    `db:"user_id"`
	Name   string `db:"name"`
	Kind   string `db:"kind"`
}

// ExpenseRevenueTypeColumns is the canonical select list for expense_revenue_types.
const ExpenseRevenueTypeColumns = "id, user_id, name, kind"

func ScanExpenseRevenueType(s RowScanner) (*ExpenseRevenueType, error) {
	var t ExpenseRevenueType
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.Kind); err != nil {
		return nil, err
	}
	return &t, nil
}

// FixedExpense is a budgeted amount for an expense/revenue type in a given
// month (stored as the first day of the month).
type FixedExpense struct {
	ID     int             `db:"id"`
	UserID int             `db:"user_id"`
	TypeID int             `db:"type_id"`
	Month  time.Time       `db:"month"`
	Amount decimal.Decimal `db:"amount"`
}

// FixedExpenseColumns is the canonical select list for fixed_expenses.
const FixedExpenseColumns = "id, user_id, type_id, month, amount"

func ScanFixedExpense(s RowScanner) (*FixedExpense, error) {
	var f FixedExpense
	if err := s.Scan(&f.ID, &f.UserID, &f.TypeID, &f.Month, &f.Amount); err != nil {
		return nil, err
	}
	return &f, nil
}
