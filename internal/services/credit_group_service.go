package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// CreditGroupService manages the descriptive groups credit purchases are
// filed under.
type CreditGroupService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// CreditGroupRequest is the credit group form payload.
type CreditGroupRequest struct {
	Name string `validate:"required,max=100"`
	Kind string `validate:"required,oneof=Purchase Reversal"`
}

func NewCreditGroupService(db *sql.DB, render *Renderer) *CreditGroupService {
	return &CreditGroupService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *CreditGroupService) ListByUser(userID int) ([]*models.CreditGroup, error) {
	rows, err := s.db.Query(
		"SELECT "+models.CreditGroupColumns+" FROM credit_groups WHERE user_id = $1 ORDER BY name",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.CreditGroup
	for rows.Next() {
		g, err := models.ScanCreditGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *CreditGroupService) GetByID(groupID, userID int) (*models.CreditGroup, error) {
	row := s.db.QueryRow(
		"SELECT "+models.CreditGroupColumns+" FROM credit_groups WHERE id = $1 AND user_id = $2",
		groupID, userID)
	g, err := models.ScanCreditGroup(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Credit group not found")
	}
	return g, err
}

func (s *CreditGroupService) Create(userID int, req *CreditGroupRequest) (*models.CreditGroup, error) {
	var groupID int
	err := s.db.QueryRow(
		"INSERT INTO credit_groups (user_id, name, kind) VALUES ($1, $2, $3) RETURNING id",
		userID, req.Name, req.Kind).Scan(&groupID)
	if err != nil {
		return nil, TranslateDBError(err,
			"A credit group with this name and kind already exists", "")
	}
	return &models.CreditGroup{ID: groupID, UserID: userID, Name: req.Name, Kind: req.Kind}, nil
}

func (s *CreditGroupService) Update(groupID, userID int, req *CreditGroupRequest) error {
	if _, err := s.GetByID(groupID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE credit_groups SET name = $1, kind = $2 WHERE id = $3 AND user_id = $4",
		req.Name, req.Kind, groupID, userID)
	if err != nil {
		return TranslateDBError(err,
			"A credit group with this name and kind already exists", "")
	}
	return nil
}

func (s *CreditGroupService) Delete(groupID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM credit_groups WHERE id = $1 AND user_id = $2", groupID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"Credit group has purchases linked to it and cannot be deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Credit group not found")
	}
	return nil
}

// HTTP handlers.

func (s *CreditGroupService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	groups, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[CREDITGROUP] Failed to list credit groups for user %d: %v", userID, err)
		http.Error(w, "Failed to list credit groups", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "credit_groups/list", map[string]any{"Groups": groups})
}

func (s *CreditGroupService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "credit_groups/form", map[string]any{"Group": nil})
}

func (s *CreditGroupService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	g, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	s.render.HTML(w, r, "credit_groups/form", map[string]any{"Group": g})
}

func (s *CreditGroupService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups/new", "[CREDITGROUP]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/credit-groups/new", "[CREDITGROUP]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-groups", "success", "Credit group created.")
}

func (s *CreditGroupService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-groups", "success", "Credit group updated.")
}

func (s *CreditGroupService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/credit-groups", "[CREDITGROUP]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-groups", "success", "Credit group deleted.")
}

func (s *CreditGroupService) parseForm(r *http.Request) (*CreditGroupRequest, error) {
	req := &CreditGroupRequest{
		Name: r.PostFormValue("name"),
		Kind: r.PostFormValue("kind"),
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
