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

// FixedExpenseService manages the monthly budgeted amounts per
// expense/revenue type.
type FixedExpenseService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// FixedExpenseRequest is the fixed expense form payload.
type FixedExpenseRequest struct {
	TypeID int `validate:"required,gt=0"`
	Month  time.Time
	Amount decimal.Decimal
}

func NewFixedExpenseService(db *sql.DB, render *Renderer) *FixedExpenseService {
	return &FixedExpenseService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *FixedExpenseService) ListByUser(userID int) ([]*models.FixedExpense, error) {
	rows, err := s.db.Query(
		"SELECT "+models.FixedExpenseColumns+" FROM fixed_expenses WHERE user_id = $1 ORDER BY month DESC, type_id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*models.FixedExpense
	for rows.Next() {
		f, err := models.ScanFixedExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, f)
	}
	return expenses, rows.Err()
}

func (s *FixedExpenseService) GetByID(expenseID, userID int) (*models.FixedExpense, error) {
	row := s.db.QueryRow(
		"SELECT "+models.FixedExpenseColumns+" FROM fixed_expenses WHERE id = $1 AND user_id = $2",
		expenseID, userID)
	f, err := models.ScanFixedExpense(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Fixed expense not found")
	}
	return f, err
}

func (s *FixedExpenseService) Create(userID int, req *FixedExpenseRequest) (*models.FixedExpense, error) {
	var expenseID int
	err := s.db.QueryRow(
		"INSERT INTO fixed_expenses (user_id, type_id, month, amount) VALUES ($1, $2, $3, $4) RETURNING id",
		userID, req.TypeID, req.Month, req.Amount).Scan(&expenseID)
	if err != nil {
		return nil, TranslateDBError(err,
			"This type already has a fixed expense for this month",
			"Expense/revenue type not found")
	}
	return &models.FixedExpense{
		ID: expenseID, UserID: userID, TypeID: req.TypeID, Month: req.Month, Amount: req.Amount,
	}, nil
}

func (s *FixedExpenseService) Update(expenseID, userID int, req *FixedExpenseRequest) error {
	if _, err := s.GetByID(expenseID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE fixed_expenses SET type_id = $1, month = $2, amount = $3 WHERE id = $4 AND user_id = $5",
		req.TypeID, req.Month, req.Amount, expenseID, userID)
	if err != nil {
		return TranslateDBError(err,
			"This type already has a fixed expense for this month",
			"Expense/revenue type not found")
	}
	return nil
}

func (s *FixedExpenseService) Delete(expenseID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM fixed_expenses WHERE id = $1 AND user_id = $2", expenseID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Fixed expense not found")
	}
	return nil
}

// HTTP handlers.

func (s *FixedExpenseService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	expenses, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[FIXEDEXPENSE] Failed to list fixed expenses for user %d: %v", userID, err)
		http.Error(w, "Failed to list fixed expenses", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "fixed_expenses/list", map[string]any{"Expenses": expenses})
}

func (s *FixedExpenseService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, nil)
}

func (s *FixedExpenseService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	f, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	s.renderForm(w, r, f)
}

func (s *FixedExpenseService) renderForm(w http.ResponseWriter, r *http.Request, expense *models.FixedExpense) {
	userID, _ := middleware.UserID(r.Context())
	types, err := NewExpenseTypeService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[FIXEDEXPENSE] Failed to load expense/revenue types for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "fixed_expenses/form", map[string]any{
		"Expense": expense,
		"Types":   types,
	})
}

func (s *FixedExpenseService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses/new", "[FIXEDEXPENSE]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/fixed-expenses/new", "[FIXEDEXPENSE]", err)
		return
	}
	s.render.Redirect(w, r, "/fixed-expenses", "success", "Fixed expense recorded.")
}

func (s *FixedExpenseService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	s.render.Redirect(w, r, "/fixed-expenses", "success", "Fixed expense updated.")
}

func (s *FixedExpenseService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/fixed-expenses", "[FIXEDEXPENSE]", err)
		return
	}
	s.render.Redirect(w, r, "/fixed-expenses", "success", "Fixed expense deleted.")
}

func (s *FixedExpenseService) parseForm(r *http.Request) (*FixedExpenseRequest, error) {
	typeID, err := formInt(r, "type_id")
	if err != nil {
		return nil, err
	}
	month, err := formMonth(r, "month")
	if err != nil {
		return nil, err
	}
	amount, err := formDecimal(r, "amount")
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("Amount must be greater than zero")
	}

	req := &FixedExpenseRequest{
		TypeID: typeID,
		Month:  month,
		Amount: amount,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
