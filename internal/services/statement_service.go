package services

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// StatementService builds the monthly bank and credit card statements.
// Statements are read-only aggregations; nothing here writes.
type StatementService struct {
	db     *sql.DB
	render *Renderer
}

// StatementLine is one bank movement on a statement with the running
// balance after it.
type StatementLine struct {
	Movement *models.BankMovement
	Balance  decimal.Decimal
}

// BankStatement is one account's month view. Opening is the balance at the
// start of the month, Closing equals Opening plus the signed sum of the
// month's movements.
type BankStatement struct {
	Account *models.BankAccount
	Month   time.Time
	Opening decimal.Decimal
	Closing decimal.Decimal
	Lines   []StatementLine
}

// CreditStatementLine is one installment due on a card statement, together
// with its purchase for display.
type CreditStatementLine struct {
	Purchase    *models.CreditPurchase
	Installment *models.Installment
}

// CreditStatement is one card's month view: the installments falling due in
// the month and their total.
type CreditStatement struct {
	Card  *models.CreditCard
	Month time.Time
	Total decimal.Decimal
	Lines []CreditStatementLine
}

func NewStatementService(db *sql.DB, render *Renderer) *StatementService {
	return &StatementService{db: db, render: render}
}

// balanceBefore computes the account balance at the given cutoff date:
// the opening balance plus the signed sum of every movement dated before
// it.
func (s *StatementService) balanceBefore(account *models.BankAccount, cutoff time.Time) (decimal.Decimal, error) {
	var delta decimal.Decimal
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE WHEN kind = 'Income' THEN amount ELSE -amount END), 0)
		 FROM bank_movements
		 WHERE account_id = $1 AND user_id = $2 AND movement_date < $3`,
		account.ID, account.UserID, cutoff).Scan(&delta)
	if err != nil {
		return decimal.Zero, err
	}
	return account.OpeningBalance.Add(delta), nil
}

// BankStatementFor assembles the statement of one account for one month.
func (s *StatementService) BankStatementFor(userID, accountID int, month time.Time) (*BankStatement, error) {
	row := s.db.QueryRow(
		"SELECT "+models.BankAccountColumns+" FROM bank_accounts WHERE id = $1 AND user_id = $2",
		accountID, userID)
	account, err := models.ScanBankAccount(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Bank account not found")
	}
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := addMonths(monthStart, 1)

	opening, err := s.balanceBefore(account, monthStart)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		"SELECT "+models.BankMovementColumns+` FROM bank_movements
		 WHERE account_id = $1 AND user_id = $2 AND movement_date >= $3 AND movement_date < $4
		 ORDER BY movement_date, id`,
		accountID, userID, monthStart, nextMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statement := &BankStatement{
		Account: account,
		Month:   monthStart,
		Opening: opening,
		Closing: opening,
	}
	for rows.Next() {
		movement, err := models.ScanBankMovement(rows)
		if err != nil {
			return nil, err
		}
		statement.Closing = statement.Closing.Add(movement.Effect())
		statement.Lines = append(statement.Lines, StatementLine{
			Movement: movement,
			Balance:  statement.Closing,
		})
	}
	return statement, rows.Err()
}

// CreditStatementFor assembles the statement of one card for one month.
func (s *StatementService) CreditStatementFor(userID, cardID int, month time.Time) (*CreditStatement, error) {
	row := s.db.QueryRow(
		"SELECT "+models.CreditCardColumns+" FROM credit_cards WHERE id = $1 AND user_id = $2",
		cardID, userID)
	card, err := models.ScanCreditCard(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Credit card not found")
	}
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)

	rows, err := s.db.Query(
		`SELECT p.id, p.user_id, p.group_id, p.card_id, p.purchase_date, p.description,
		        p.total, p.installments, p.first_month, p.last_month, p.monthly_amount,
		        i.id, i.purchase_id, i.number, i.due_day, i.due_month, i.due_year, i.amount
		 FROM installments i
		 JOIN credit_purchases p ON p.id = i.purchase_id
		 WHERE p.card_id = $1 AND p.user_id = $2 AND i.due_year = $3 AND i.due_month = $4
		 ORDER BY i.due_day, p.purchase_date, i.number`,
		cardID, userID, monthStart.Year(), int(monthStart.Month()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statement := &CreditStatement{Card: card, Month: monthStart, Total: decimal.Zero}
	for rows.Next() {
		var p models.CreditPurchase
		var i models.Installment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.GroupID, &p.CardID, &p.PurchaseDate, &p.Description,
			&p.Total, &p.Installments, &p.FirstMonth, &p.LastMonth, &p.MonthlyAmount,
			&i.ID, &i.PurchaseID, &i.Number, &i.DueDay, &i.DueMonth, &i.DueYear, &i.Amount); err != nil {
			return nil, err
		}
		statement.Total = statement.Total.Add(i.Amount)
		statement.Lines = append(statement.Lines, CreditStatementLine{Purchase: &p, Installment: &i})
	}
	return statement, rows.Err()
}

// HTTP handlers. Both statement pages double as form and result: with no
// query parameters they render the selector form, with account/card and
// month they render the statement.

func (s *StatementService) BankStatement(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	accounts, err := NewAccountService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[STATEMENT] Failed to load accounts: %v", err)
		http.Error(w, "Failed to load statement page", http.StatusInternalServerError)
		return
	}

	data := map[string]any{"Accounts": accounts}
	if r.URL.Query().Get("account_id") != "" {
		accountID, month, err := statementParams(r, "account_id")
		if err != nil {
			s.render.Fail(w, r, "/statements/bank", "[STATEMENT]", err)
			return
		}
		statement, err := s.BankStatementFor(userID, accountID, month)
		if err != nil {
			s.render.Fail(w, r, "/statements/bank", "[STATEMENT]", err)
			return
		}
		data["Statement"] = statement
	}
	s.render.HTML(w, r, "statements/bank", data)
}

func (s *StatementService) CreditStatement(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	cards, err := NewCreditCardService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[STATEMENT] Failed to load credit cards: %v", err)
		http.Error(w, "Failed to load statement page", http.StatusInternalServerError)
		return
	}

	data := map[string]any{"Cards": cards}
	if r.URL.Query().Get("card_id") != "" {
		cardID, month, err := statementParams(r, "card_id")
		if err != nil {
			s.render.Fail(w, r, "/statements/credit", "[STATEMENT]", err)
			return
		}
		statement, err := s.CreditStatementFor(userID, cardID, month)
		if err != nil {
			s.render.Fail(w, r, "/statements/credit", "[STATEMENT]", err)
			return
		}
		data["Statement"] = statement
	}
	s.render.HTML(w, r, "statements/credit", data)
}

func statementParams(r *http.Request, idParam string) (int, time.Time, error) {
	id, err := queryInt(r, idParam)
	if err != nil {
		return 0, time.Time{}, err
	}
	month, err := time.Parse("2006-01", r.URL.Query().Get("month"))
	if err != nil {
		return 0, time.Time{}, NewValidationError("Invalid month, expected YYYY-MM")
	}
	return id, month, nil
}
