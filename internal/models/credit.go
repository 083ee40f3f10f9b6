package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit group kinds.
const (
	CreditPurchaseKind = "Purchase"
	CreditReversal     = "Reversal"
)

// CreditGroup is a descriptive grouping for credit purchases (e.g.
// "Household", "Travel").
type CreditGroup struct {
	ID     int    `db:"id"`
	UserID int    `db:"user_id"`
	Name   string `db:"name"`
	Kind   string `db:"kind"`
}

// CreditGroupColumns is the canonical select list for credit_groups.
const CreditGroupColumns = "id, user_id, name, kind"

func ScanCreditGroup(s RowScanner) (*CreditGroup, error) {
	var g CreditGroup
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Kind); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreditCard is a card-like credit instrument, identified to the user by its
// name and last digits. Distinct from a bank account.
type CreditCard struct {
	ID         int             `db:"id"`
	UserID     int             `db:"user_id"`
	Name       string          `db:"name"`
	Kind       string          `db:"kind"`
	LastDigits int             `db:"last_digits"`
	Limit      decimal.Decimal `db:"credit_limit"`
}

// CreditCardColumns is the canonical select list for credit_cards.
const CreditCardColumns = "id, user_id, name, kind, last_digits, credit_limit"

func ScanCreditCard(s RowScanner) (*CreditCard, error) {
	var c CreditCard
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Kind, &c.LastDigits, &c.Limit); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreditPurchase is a purchase split into Installments monthly rows.
// LastMonth and MonthlyAmount are derived at write time and stored.
type CreditPurchase struct {
	ID            int             `db:"id"`
	UserID        int             `db:"user_id"`
	GroupID       int             `db:"group_id"`
	CardID        int             `db:"card_id"`
	PurchaseDate  time.Time       `db:"purchase_date"`
	Description   string          `db:"description"`
	Total         decimal.Decimal `db:"total"`
	Installments  int             `db:"installments"`
	FirstMonth    time.Time       `db:"first_month"`
	LastMonth     time.Time       `db:"last_month"`
	MonthlyAmount decimal.Decimal `db:"monthly_amount"`
}

// CreditPurchaseColumns is the canonical select list for credit_purchases.
const CreditPurchaseColumns = "id, user_id, group_id, card_id, purchase_date, description, total, installments, first_month, last_month, monthly_amount"

func ScanCreditPurchase(s RowScanner) (*CreditPurchase, error) {
	var p CreditPurchase
	if err := s.Scan(&p.ID, &p.UserID, &p.GroupID, &p.CardID, &p.PurchaseDate, &p.Description,
		&p.Total, &p.Installments, &p.FirstMonth, &p.LastMonth, &p.MonthlyAmount); err != nil {
		return nil, err
	}
	return &p, nil
}

// Installment is one monthly slice of a credit purchase.
type Installment struct {
	ID         int             `db:"id"`
	PurchaseID int             `db:"purchase_id"`
	Number     int             `db:"number"`
	DueDay     int             `db:"due_day"`
	DueMonth   int             `db:"due_month"`
	DueYear    int             `db:"due_year"`
	Amount     decimal.Decimal `db:"amount"`
}

// InstallmentColumns is the canonical select list for installments.
const InstallmentColumns = "id, purchase_id, number, due_day, due_month, due_year, amount"

func ScanInstallment(s RowScanner) (*Installment, error) {
	var i Installment
	if err := s.Scan(&i.ID, &i.PurchaseID, &i.Number, &i.DueDay, &i.DueMonth, &i.DueYear, &i.Amount); err != nil {
		return nil, err
	}
	return &i, nil
}
