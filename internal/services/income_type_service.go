package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// IncomeTypeService manages the recurring income and deduction lines a user
// records payments against.
type IncomeTypeService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// IncomeTypeRequest is the income type form payload.
type IncomeTypeRequest struct {
	Description string `validate:"required,max=150"`
	Kind        string `validate:"required,oneof=Earning Deduction Benefit Other"`
}

func NewIncomeTypeService(db *sql.DB, render *Renderer) *IncomeTypeService {
	return &IncomeTypeService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *IncomeTypeService) ListByUser(userID int) ([]*models.IncomeType, error) {
	rows, err := s.db.Query(
		"SELECT "+models.IncomeTypeColumns+" FROM income_types WHERE user_id = $1 ORDER BY description",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*models.IncomeType
	for rows.Next() {
		t, err := models.ScanIncomeType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (s *IncomeTypeService) GetByID(typeID, userID int) (*models.IncomeType, error) {
	row := s.db.QueryRow(
		"SELECT "+models.IncomeTypeColumns+" FROM income_types WHERE id = $1 AND user_id = $2",
		typeID, userID)
	t, err := models.ScanIncomeType(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Income type not found")
	}
	return t, err
}

func (s *IncomeTypeService) Create(userID int, req *IncomeTypeRequest) (*models.IncomeType, error) {
	var typeID int
	err := s.db.QueryRow(
		"INSERT INTO income_types (user_id, description, kind) VALUES ($1, $2, $3) RETURNING id",
		userID, req.Description, req.Kind).Scan(&typeID)
	if err != nil {
		return nil, TranslateDBError(err,
			"An income type with this description and kind already exists", "")
	}
	return &models.IncomeType{ID: typeID, UserID: userID, Description: req.Description, Kind: req.Kind}, nil
}

func (s *IncomeTypeService) Update(typeID, userID int, req *IncomeTypeRequest) error {
	if _, err := s.GetByID(typeID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE income_types SET description = $1, kind = $2 WHERE id = $3 AND user_id = $4",
		req.Description, req.Kind, typeID, userID)
	if err != nil {
		return TranslateDBError(err,
			"An income type with this description and kind already exists", "")
	}
	return nil
}

func (s *IncomeTypeService) Delete(typeID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM income_types WHERE id = $1 AND user_id = $2", typeID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"Income type has movements linked to it and cannot be deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Income type not found")
	}
	return nil
}

// HTTP handlers.

func (s *IncomeTypeService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	types, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[INCOMETYPE] Failed to list income types for user %d: %v", userID, err)
		http.Error(w, "Failed to list income types", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "income_types/list", map[string]any{"Types": types})
}

func (s *IncomeTypeService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "income_types/form", map[string]any{"Type": nil})
}

func (s *IncomeTypeService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	t, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	s.render.HTML(w, r, "income_types/form", map[string]any{"Type": t})
}

func (s *IncomeTypeService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/income-types/new", "[INCOMETYPE]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/income-types/new", "[INCOMETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/income-types", "success", "Income type created.")
}

func (s *IncomeTypeService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/income-types", "success", "Income type updated.")
}

func (s *IncomeTypeService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/income-types", "[INCOMETYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/income-types", "success", "Income type deleted.")
}

func (s *IncomeTypeService) parseForm(r *http.Request) (*IncomeTypeRequest, error) {
	req := &IncomeTypeRequest{
		Description: r.PostFormValue("description"),
		Kind:        r.PostFormValue("kind"),
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
