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

// IncomeMovementService records the monthly payments of income items.
// Unlike bank movements these touch no balance, so plain statements
// suffice.
type IncomeMovementService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// IncomeMovementRequest is the income movement form payload.
type IncomeMovementRequest struct {
	IncomeTypeID int `validate:"required,gt=0"`
	RefMonth     time.Time
	PaymentMonth time.Time
	Amount       decimal.Decimal
}

func NewIncomeMovementService(db *sql.DB, render *Renderer) *IncomeMovementService {
	return &IncomeMovementService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *IncomeMovementService) ListByUser(userID int) ([]*models.IncomeMovement, error) {
	rows, err := s.db.Query(
		"SELECT "+models.IncomeMovementColumns+" FROM income_movements WHERE user_id = $1 ORDER BY ref_month DESC, income_type_id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*models.IncomeMovement
	for rows.Next() {
		m, err := models.ScanIncomeMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *IncomeMovementService) GetByID(movementID, userID int) (*models.IncomeMovement, error) {
	row := s.db.QueryRow(
		"SELECT "+models.IncomeMovementColumns+" FROM income_movements WHERE id = $1 AND user_id = $2",
		movementID, userID)
	m, err := models.ScanIncomeMovement(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Income movement not found")
	}
	return m, err
}

// checkKindSign enforces the sign convention per income type kind:
// deductions are negative, earnings and benefits positive. The lookup is
// scoped by user, so a type owned by someone else reads as not found.
func (s *IncomeMovementService) checkKindSign(typeID, userID int, amount decimal.Decimal) error {
	var kind string
	err := s.db.QueryRow(
		"SELECT kind FROM income_types WHERE id = $1 AND user_id = $2",
		typeID, userID).Scan(&kind)
	if err == sql.ErrNoRows {
		return NewValidationError("Income type not found")
	}
	if err != nil {
		return err
	}
	switch kind {
	case models.IncomeDeduction:
		if amount.IsPositive() {
			return NewValidationError("Deductions must have a negative amount")
		}
	case models.IncomeEarning, models.IncomeBenefit:
		if amount.IsNegative() {
			return NewValidationError("Earnings and benefits must have a positive amount")
		}
	}
	return nil
}

func (s *IncomeMovementService) Create(userID int, req *IncomeMovementRequest) (*models.IncomeMovement, error) {
	if err := s.checkKindSign(req.IncomeTypeID, userID, req.Amount); err != nil {
		return nil, err
	}
	var movementID int
	err := s.db.QueryRow(
		`INSERT INTO income_movements (user_id, income_type_id, ref_month, payment_month, amount)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, req.IncomeTypeID, req.RefMonth, req.PaymentMonth, req.Amount).Scan(&movementID)
	if err != nil {
		return nil, TranslateDBError(err,
			"This income type already has a movement for this reference month",
			"Income type not found")
	}
	return &models.IncomeMovement{
		ID: movementID, UserID: userID, IncomeTypeID: req.IncomeTypeID,
		RefMonth: req.RefMonth, PaymentMonth: req.PaymentMonth, Amount: req.Amount,
	}, nil
}

func (s *IncomeMovementService) Update(movementID, userID int, req *IncomeMovementRequest) error {
	if _, err := s.GetByID(movementID, userID); err != nil {
		return err
	}
	if err := s.checkKindSign(req.IncomeTypeID, userID, req.Amount); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`UPDATE income_movements
		 SET income_type_id = $1, ref_month = $2, payment_month = $3, amount = $4
		 WHERE id = $5 AND user_id = $6`,
		req.IncomeTypeID, req.RefMonth, req.PaymentMonth, req.Amount, movementID, userID)
	if err != nil {
		return TranslateDBError(err,
			"This income type already has a movement for this reference month",
			"Income type not found")
	}
	return nil
}

func (s *IncomeMovementService) Delete(movementID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM income_movements WHERE id = $1 AND user_id = $2", movementID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Income movement not found")
	}
	return nil
}

// HTTP handlers.

func (s *IncomeMovementService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	movements, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[INCOME] Failed to list income movements for user %d: %v", userID, err)
		http.Error(w, "Failed to list income movements", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "income_movements/list", map[string]any{"Movements": movements})
}

func (s *IncomeMovementService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, nil)
}

func (s *IncomeMovementService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	m, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	s.renderForm(w, r, m)
}

func (s *IncomeMovementService) renderForm(w http.ResponseWriter, r *http.Request, movement *models.IncomeMovement) {
	userID, _ := middleware.UserID(r.Context())
	types, err := NewIncomeTypeService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[INCOME] Failed to load income types for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "income_movements/form", map[string]any{
		"Movement": movement,
		"Types":    types,
	})
}

func (s *IncomeMovementService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/income-movements/new", "[INCOME]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/income-movements/new", "[INCOME]", err)
		return
	}
	s.render.Redirect(w, r, "/income-movements", "success", "Income movement recorded.")
}

func (s *IncomeMovementService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	s.render.Redirect(w, r, "/income-movements", "success", "Income movement updated.")
}

func (s *IncomeMovementService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/income-movements", "[INCOME]", err)
		return
	}
	s.render.Redirect(w, r, "/income-movements", "success", "Income movement deleted.")
}

func (s *IncomeMovementService) parseForm(r *http.Request) (*IncomeMovementRequest, error) {
	typeID, err := formInt(r, "income_type_id")
	if err != nil {
		return nil, err
	}
	refMonth, err := formMonth(r, "ref_month")
	if err != nil {
		return nil, err
	}
	paymentMonth, err := formMonth(r, "payment_month")
	if err != nil {
		return nil, err
	}
	amount, err := formDecimal(r, "amount")
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, NewValidationError("Amount cannot be zero")
	}

	req := &IncomeMovementRequest{
		IncomeTypeID: typeID,
		RefMonth:     refMonth,
		PaymentMonth: paymentMonth,
		Amount:       amount,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
