package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement kinds. An Income movement raises the account balance, an Expense
// movement lowers it.
const (
	MovementIncome  = "Income"
	MovementExpense = "Expense"
)

// Transaction type kinds used to tag bank movements.
const (
	TransactionCredit = "Credit"
	TransactionDebit  = "Debit"
)

// BankAccount is a user's bank account. CurrentBalance is maintained by
// movement writes; OverdraftLimit is the amount the balance may go below
// zero before movements are rejected.
type BankAccount struct {
	ID             int             `db:"id"`
	UserID         int             `db:"user_id"`
	Bank           string          `db:"bank"`
	Branch         string          `db:"branch"`
	AccountNumber  string          `db:"account_number"`
	AccountType    string          `db:"account_type"`
	OpeningBalance decimal.Decimal `db:"opening_balance"`
	CurrentBalance decimal.Decimal `db:"current_balance"`
	OverdraftLimit decimal.Decimal `db:"overdraft_limit"`
}

// BankAccountColumns is the canonical select list for bank_accounts.
const BankAccountColumns = "id, user_id, bank, branch, account_number, account_type, opening_balance, current_balance, overdraft_limit"

func ScanBankAccount(s RowScanner) (*BankAccount, error) {
	var a BankAccount
	if err := s.Scan(&a.ID, &a.UserID, &a.Bank, &a.Branch, &a.AccountNumber, &a.AccountType,
		&a.OpeningBalance, &a.CurrentBalance, &a.OverdraftLimit); err != nil {
		return nil, err
	}
	return &a, nil
}

// BankTransactionType is a user-defined label for movements (e.g. "Salary",
// Credit) used to classify entries on statements.
type BankTransactionType struct {
	ID     int    `db:"id"`
	UserID int    `db:"user_id"`
	Name   string `db:"name"`
	Kind   string `db:"kind"`
}

// BankTransactionTypeColumns is the canonical select list for bank_transaction_types.
const BankTransactionTypeColumns = "id, user_id, name, kind"

func ScanBankTransactionType(s RowScanner) (*BankTransactionType, error) {
	var t BankTransactionType
	if err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.Kind); err != nil {
		return nil, err
	}
	return &t, nil
}

// BankMovement is one ledger entry against a bank account. Amount is stored
// as a positive value; Kind decides the sign of its effect on the balance.
type BankMovement struct {
	ID                int             `db:"id"`
	UserID            int             `db:"user_id"`
	AccountID         int             `db:"account_id"`
	TransactionTypeID int             `db:"transaction_type_id"`
	Date              time.Time       `db:"movement_date"`
	Amount            decimal.Decimal `db:"amount"`
	Kind              string          `db:"kind"`
}

// BankMovementColumns is the canonical select list for bank_movements.
const BankMovementColumns = "id, user_id, account_id, transaction_type_id, movement_date, amount, kind"

func ScanBankMovement(s RowScanner) (*BankMovement, error) {
	var m BankMovement
	if err := s.Scan(&m.ID, &m.UserID, &m.AccountID, &m.TransactionTypeID, &m.Date, &m.Amount, &m.Kind); err != nil {
		return nil, err
	}
	return &m, nil
}

// Effect is the signed balance adjustment this movement applies to its
// account: +|Amount| for Income, -|Amount| for Expense.
func (m *BankMovement) Effect() decimal.Decimal {
	if m.Kind == MovementIncome {
		return m.Amount.Abs()
	}
	return m.Amount.Abs().Neg()
}
