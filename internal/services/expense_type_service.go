package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// ExpenseTypeService manages the budget line labels fixed expenses are
// recorded under.
type ExpenseTypeService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// ExpenseTypeRequest is the expense/revenue type form payload.
type ExpenseTypeRequest struct {
	Name string `validate:"required,max=100"`
	Kind string `validate:"required,oneof=Expense Revenue"`
}

func NewExpenseTypeService(db *sql.DB, render *Renderer) *ExpenseTypeService {
	return &ExpenseTypeService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *ExpenseTypeService) ListByUser(userID int) ([]*models.ExpenseRevenueType, error) {
	rows, err := s.db.Query(
		"SELECT "+models.ExpenseRevenueTypeColumns+" FROM expense_revenue_types WHERE user_id = $1 ORDER BY name",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*models.ExpenseRevenueType
	for rows.Next() {
		t, err := models.ScanExpenseRevenueType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *ExpenseTypeService) GetByID(typeID, userID int) (*models.ExpenseRevenueType, error) {
	row := s.db.QueryRow(
		"SELECT "+models.ExpenseRevenueTypeColumns+" FROM expense_revenue_types WHERE id = $1 AND user_id = $2",
		typeID, userID)
	t, err := models.ScanExpenseRevenueType(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Expense/revenue type not found")
	}
	return t, err
}

func (s *ExpenseTypeService) Create(userID int, req *ExpenseTypeRequest) (*models.ExpenseRevenueType, error) {
	var typeID int
	err := s.db.QueryRow(
		"INSERT INTO expense_revenue_types (user_id, name, kind) VALUES ($1, $2, $3) RETURNING id",
		userID, req.Name, req.Kind).Scan(&typeID)
	if err != nil {
		return nil, TranslateDBError(err,
			"An expense/revenue type with this name and kind already exists", "")
	}
	return &models.ExpenseRevenueType{ID: typeID, UserID: userID, Name: req.Name, Kind: req.Kind}, nil
}

func (s *ExpenseTypeService) Update(typeID, userID int, req *ExpenseTypeRequest) error {
	if _, err := s.GetByID(typeID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE expense_revenue_types SET name = $1, kind = $2 WHERE id = $3 AND user_id = $4",
		req.Name, req.Kind, typeID, userID)
	if err != nil {
		return TranslateDBError(err,
			"An expense/revenue type with this name and kind already exists", "")
	}
	return nil
}

func (s *ExpenseTypeService) Delete(typeID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM expense_revenue_types WHERE id = $1 AND user_id = $2", typeID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"Expense/revenue type has fixed expenses linked to it and cannot be deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Expense/revenue type not found")
	}
	return nil
}

// HTTP handlers.

func (s *ExpenseTypeService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	types, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[EXPENSETYPE] Failed to list expense/revenue types for user %d: %v", userID, err)
		http.Error(w, "Failed to list expense/revenue types", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "expense_types/list", map[string]any{"Types": types})
}

func (s *ExpenseTypeService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "expense_types/form", map[string]any{"Type": nil})
}

func (s *ExpenseTypeService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	t, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	s.render.HTML(w, r, "expense_types/form", map[string]any{"Type": t})
}

func (s *ExpenseTypeService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/expense-types/new", "[EXPENSETYPE]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/expense-types/new", "[EXPENSETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/expense-types", "success", "Expense/revenue type created.")
}

func (s *ExpenseTypeService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/expense-types", "success", "Expense/revenue type updated.")
}

func (s *ExpenseTypeService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/expense-types", "[EXPENSETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/expense-types", "success", "Expense/revenue type deleted.")
}

func (s *ExpenseTypeService) parseForm(r *http.Request) (*ExpenseTypeRequest, error) {
	req := &ExpenseTypeRequest{
		Name: r.PostFormValue("name"),
		Kind: r.PostFormValue("kind"),
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
