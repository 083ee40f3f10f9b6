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

// PurchaseService manages credit purchases and their installment schedules.
// A purchase and its installments are always written together in one
// transaction; editing a purchase drops and rebuilds the whole schedule.
type PurchaseService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// PurchaseRequest is the credit purchase form payload.
type PurchaseRequest struct {
	GroupID      int    `validate:"required,gt=0"`
	CardID       int    `validate:"required,gt=0"`
	Description  string `validate:"required,max=200"`
	Installments int    `validate:"required,gte=1,lte=360"`
	PurchaseDate time.Time
	FirstMonth   time.Time
	Total        decimal.Decimal
}

func NewPurchaseService(db *sql.DB, render *Renderer) *PurchaseService {
	return &PurchaseService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// ListByUser returns a user's credit purchases, newest first.
func (s *PurchaseService) ListByUser(userID int) ([]*models.CreditPurchase, error) {
	rows, err := s.db.Query(
		"SELECT "+models.CreditPurchaseColumns+" FROM credit_purchases WHERE user_id = $1 ORDER BY purchase_date DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*models.CreditPurchase
	for rows.Next() {
		p, err := models.ScanCreditPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// GetByID returns a purchase owned by the user.
func (s *PurchaseService) GetByID(purchaseID, userID int) (*models.CreditPurchase, error) {
	row := s.db.QueryRow(
		"SELECT "+models.CreditPurchaseColumns+" FROM credit_purchases WHERE id = $1 AND user_id = $2",
		purchaseID, userID)
	p, err := models.ScanCreditPurchase(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Credit purchase not found")
	}
	return p, err
}

// ListInstallments returns the schedule of a purchase owned by the user.
func (s *PurchaseService) ListInstallments(purchaseID, userID int) ([]*models.Installment, error) {
	if _, err := s.GetByID(purchaseID, userID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		"SELECT "+models.InstallmentColumns+" FROM installments WHERE purchase_id = $1 ORDER BY number",
		purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []*models.Installment
	for rows.Next() {
		i, err := models.ScanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, i)
	}
	return installments, rows.Err()
}

// Create records a purchase together with its full installment schedule.
func (s *PurchaseService) Create(userID int, req *PurchaseRequest) (*models.CreditPurchase, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.checkReferences(tx, userID, req); err != nil {
		return nil, err
	}

	lastMonth := addMonths(req.FirstMonth, req.Installments-1)
	monthly := monthlyAmount(req.Total, req.Installments)

	var purchaseID int
	err = tx.QueryRow(
		`INSERT INTO credit_purchases
		   (user_id, group_id, card_id, purchase_date, description, total, installments, first_month, last_month, monthly_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		userID, req.GroupID, req.CardID, req.PurchaseDate, req.Description,
		req.Total, req.Installments, req.FirstMonth, lastMonth, monthly).Scan(&purchaseID)
	if err != nil {
		return nil, TranslateDBError(err,
			"An identical credit purchase already exists",
			"Credit group or card not found")
	}

	if err := s.insertScheduleTx(tx, purchaseID, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.CreditPurchase{
		ID: purchaseID, UserID: userID, GroupID: req.GroupID, CardID: req.CardID,
		PurchaseDate: req.PurchaseDate, Description: req.Description,
		Total: req.Total, Installments: req.Installments,
		FirstMonth: req.FirstMonth, LastMonth: lastMonth, MonthlyAmount: monthly,
	}, nil
}

// Update rewrites the purchase and regenerates the installment schedule
// from scratch, so a changed total, count or first month yields a fully
// consistent set of rows.
func (s *PurchaseService) Update(purchaseID, userID int, req *PurchaseRequest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		"SELECT "+models.CreditPurchaseColumns+" FROM credit_purchases WHERE id = $1 AND user_id = $2",
		purchaseID, userID)
	if _, err := models.ScanCreditPurchase(row); err != nil {
		if err == sql.ErrNoRows {
			return NewValidationError("Credit purchase not found")
		}
		return err
	}

	if err := s.checkReferences(tx, userID, req); err != nil {
		return err
	}

	lastMonth := addMonths(req.FirstMonth, req.Installments-1)
	monthly := monthlyAmount(req.Total, req.Installments)

	_, err = tx.Exec(
		`UPDATE credit_purchases
		 SET group_id = $1, card_id = $2, purchase_date = $3, description = $4,
		     total = $5, installments = $6, first_month = $7, last_month = $8, monthly_amount = $9
		 WHERE id = $10 AND user_id = $11`,
		req.GroupID, req.CardID, req.PurchaseDate, req.Description,
		req.Total, req.Installments, req.FirstMonth, lastMonth, monthly,
		purchaseID, userID)
	if err != nil {
		return TranslateDBError(err,
			"An identical credit purchase already exists",
			"Credit group or card not found")
	}

	if _, err := tx.Exec("DELETE FROM installments WHERE purchase_id = $1", purchaseID); err != nil {
		return err
	}
	if err := s.insertScheduleTx(tx, purchaseID, req); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a purchase; its installments go with it.
func (s *PurchaseService) Delete(purchaseID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM credit_purchases WHERE id = $1 AND user_id = $2", purchaseID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Credit purchase not found")
	}
	return nil
}

// checkReferences verifies the group and card belong to the user before the
// insert, so the error message names the missing entity instead of
// surfacing a foreign key failure.
func (s *PurchaseService) checkReferences(tx *sql.Tx, userID int, req *PurchaseRequest) error {
	var exists bool
	err := tx.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM credit_groups WHERE id = $1 AND user_id = $2)",
		req.GroupID, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return NewValidationError("Credit group not found")
	}
	err = tx.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM credit_cards WHERE id = $1 AND user_id = $2)",
		req.CardID, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return NewValidationError("Credit card not found")
	}
	return nil
}

func (s *PurchaseService) insertScheduleTx(tx *sql.Tx, purchaseID int, req *PurchaseRequest) error {
	stmt, err := tx.Prepare(
		`INSERT INTO installments (purchase_id, number, due_day, due_month, due_year, amount)
		 VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, inst := range buildSchedule(req.PurchaseDate, req.FirstMonth, req.Total, req.Installments) {
		if _, err := stmt.Exec(purchaseID, inst.Number, inst.DueDay, inst.DueMonth, inst.DueYear, inst.Amount); err != nil {
			return err
		}
	}
	return nil
}

// HTTP handlers.

func (s *PurchaseService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	purchases, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[PURCHASE] Failed to list purchases for user %d: %v", userID, err)
		http.Error(w, "Failed to list credit purchases", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "purchases/list", map[string]any{"Purchases": purchases})
}

func (s *PurchaseService) Show(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	purchase, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	installments, err := s.ListInstallments(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	s.render.HTML(w, r, "purchases/show", map[string]any{
		"Purchase":     purchase,
		"Installments": installments,
	})
}

func (s *PurchaseService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, nil)
}

func (s *PurchaseService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	purchase, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	s.renderForm(w, r, purchase)
}

func (s *PurchaseService) renderForm(w http.ResponseWriter, r *http.Request, purchase *models.CreditPurchase) {
	userID, _ := middleware.UserID(r.Context())
	groups, err := NewCreditGroupService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[PURCHASE] Failed to load credit groups for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	cards, err := NewCreditCardService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[PURCHASE] Failed to load credit cards for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "purchases/form", map[string]any{
		"Purchase": purchase,
		"Groups":   groups,
		"Cards":    cards,
	})
}

func (s *PurchaseService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases/new", "[PURCHASE]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/purchases/new", "[PURCHASE]", err)
		return
	}
	s.render.Redirect(w, r, "/purchases", "success", "Credit purchase recorded.")
}

func (s *PurchaseService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	s.render.Redirect(w, r, "/purchases", "success", "Credit purchase updated.")
}

func (s *PurchaseService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/purchases", "[PURCHASE]", err)
		return
	}
	s.render.Redirect(w, r, "/purchases", "success", "Credit purchase deleted.")
}

func (s *PurchaseService) parseForm(r *http.Request) (*PurchaseRequest, error) {
	groupID, err := formInt(r, "group_id")
	if err != nil {
		return nil, err
	}
	cardID, err := formInt(r, "card_id")
	if err != nil {
		return nil, err
	}
	purchaseDate, err := formDate(r, "purchase_date")
	if err != nil {
		return nil, err
	}
	firstMonth, err := formMonth(r, "first_month")
	if err != nil {
		return nil, err
	}
	total, err := formDecimal(r, "total")
	if err != nil {
		return nil, err
	}
	if !total.IsPositive() {
		return nil, NewValidationError("Total must be greater than zero")
	}
	count, err := formInt(r, "installments")
	if err != nil {
		return nil, err
	}

	req := &PurchaseRequest{
		GroupID:      groupID,
		CardID:       cardID,
		Description:  r.PostFormValue("description"),
		Installments: count,
		PurchaseDate: purchaseDate,
		FirstMonth:   firstMonth,
		Total:        total,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
