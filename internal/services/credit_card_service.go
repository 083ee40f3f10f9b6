package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// CreditCardService manages the credit instruments purchases are charged
// against.
type CreditCardService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// CreditCardRequest is the credit card form payload.
type CreditCardRequest struct {
	Name       string `validate:"required,max=100"`
	Kind       string `validate:"required,max=50"`
	LastDigits int    `validate:"gte=0,lte=9999"`
	Limit      decimal.Decimal
}

func NewCreditCardService(db *sql.DB, render *Renderer) *CreditCardService {
	return &CreditCardService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

func (s *CreditCardService) ListByUser(userID int) ([]*models.CreditCard, error) {
	rows, err := s.db.Query(
		"SELECT "+models.CreditCardColumns+" FROM credit_cards WHERE user_id = $1 ORDER BY name",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*models.CreditCard
	for rows.Next() {
		c, err := models.ScanCreditCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *CreditCardService) GetByID(cardID, userID int) (*models.CreditCard, error) {
	row := s.db.QueryRow(
		"SELECT "+models.CreditCardColumns+" FROM credit_cards WHERE id = $1 AND user_id = $2",
		cardID, userID)
	c, err := models.ScanCreditCard(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Credit card not found")
	}
	return c, err
}

func (s *CreditCardService) Create(userID int, req *CreditCardRequest) (*models.CreditCard, error) {
	var cardID int
	err := s.db.QueryRow(
		"INSERT INTO credit_cards (user_id, name, kind, last_digits, credit_limit) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		userID, req.Name, req.Kind, req.LastDigits, req.Limit).Scan(&cardID)
	if err != nil {
		return nil, TranslateDBError(err,
			"A credit card with this name and last digits already exists", "")
	}
	return &models.CreditCard{
		ID: cardID, UserID: userID, Name: req.Name, Kind: req.Kind,
		LastDigits: req.LastDigits, Limit: req.Limit,
	}, nil
}

func (s *CreditCardService) Update(cardID, userID int, req *CreditCardRequest) error {
	if _, err := s.GetByID(cardID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE credit_cards SET name = $1, kind = $2, last_digits = $3, credit_limit = $4 WHERE id = $5 AND user_id = $6",
		req.Name, req.Kind, req.LastDigits, req.Limit, cardID, userID)
	if err != nil {
		return TranslateDBError(err,
			"A credit card with this name and last digits already exists", "")
	}
	return nil
}

func (s *CreditCardService) Delete(cardID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM credit_cards WHERE id = $1 AND user_id = $2", cardID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"Credit card has purchases linked to it and cannot be deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Credit card not found")
	}
	return nil
}

// HTTP handlers.

func (s *CreditCardService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	cards, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[CREDITCARD] Failed to list credit cards for user %d: %v", userID, err)
		http.Error(w, "Failed to list credit cards", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "credit_cards/list", map[string]any{"Cards": cards})
}

func (s *CreditCardService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "credit_cards/form", map[string]any{"Card": nil})
}

func (s *CreditCardService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	c, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	s.render.HTML(w, r, "credit_cards/form", map[string]any{"Card": c})
}

func (s *CreditCardService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards/new", "[CREDITCARD]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/credit-cards/new", "[CREDITCARD]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-cards", "success", "Credit card created.")
}

func (s *CreditCardService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-cards", "success", "Credit card updated.")
}

func (s *CreditCardService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/credit-cards", "[CREDITCARD]", err)
		return
	}
	s.render.Redirect(w, r, "/credit-cards", "success", "Credit card deleted.")
}

func (s *CreditCardService) parseForm(r *http.Request) (*CreditCardRequest, error) {
	lastDigits, err := formInt(r, "last_digits")
	if err != nil {
		return nil, err
	}
	limit, err := formDecimal(r, "credit_limit")
	if err != nil {
		return nil, err
	}
	if limit.IsNegative() {
		return nil, NewValidationError("Credit limit must not be negative")
	}

	req := &CreditCardRequest{
		Name:       r.PostFormValue("name"),
		Kind:       r.PostFormValue("kind"),
		LastDigits: lastDigits,
		Limit:      limit,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
