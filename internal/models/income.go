package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Income type kinds.
const (
	IncomeEarning   = "Earning"
	IncomeDeduction = "Deduction"
	IncomeBenefit   = "Benefit"
	IncomeOther     = "Other"
)

// IncomeType is a recurring income or deduction line (salary, tax, benefit).
type IncomeType struct {
	ID          int    `db:"id"`
	UserID      int    `db:"user_id"`
	Description string `db:"description"`
	Kind        string `db:"kind"`
}

// IncomeTypeColumns is the canonical select list for income_types.
const IncomeTypeColumns = "id, user_id, description, kind"

func ScanIncomeType(s RowScanner) (*IncomeType, error) {
	var t IncomeType
	if err := s.Scan(&t.ID, &t.UserID, &t.Description, &t.Kind); err != nil {
		return nil, err
	}
	return &t, nil
}

// IncomeMovement records the payment of an income item for a reference
// month. Both months are stored as the first day of the month.
type IncomeMovement struct {
	ID           int             `db:"id"`
	UserID       int             `db:"user_id"`
	IncomeTypeID int             `db:"income_type_id"`
	RefMonth     time.Time       `db:"ref_month"`
	PaymentMonth time.Time       `db:"payment_month"`
	Amount       decimal.Decimal `db:"amount"`
}

// IncomeMovementColumns is the canonical select list for income_movements.
const IncomeMovementColumns = "id, user_id, income_type_id, ref_month, payment_month, amount"

func ScanIncomeMovement(s RowScanner) (*IncomeMovement, error) {
	var m IncomeMovement
	if err := s.Scan(&m.ID, &m.UserID, &m.IncomeTypeID, &m.RefMonth, &m.PaymentMonth, &m.Amount); err != nil {
		return nil, err
	}
	return &m, nil
}
