package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// TransactionTypeService manages the user-defined labels attached to bank
// movements.
type TransactionTypeService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// TransactionTypeRequest is the transaction type form payload.
type TransactionTypeRequest struct {
	Name string `validate:"required,max=100"`
	Kind string `validate:"required,oneof=Credit Debit"`
}

func NewTransactionTypeService(db *sql.DB, render *Renderer) *TransactionTypeService {
	return &TransactionTypeService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// ListByUser returns a user's transaction types ordered by name.
func (s *TransactionTypeService) ListByUser(userID int) ([]*models.BankTransactionType, error) {
	rows, err := s.db.Query(
		"SELECT "+models.BankTransactionTypeColumns+" FROM bank_transaction_types WHERE user_id = $1 ORDER BY name",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*models.BankTransactionType
	for rows.Next() {
		t, err := models.ScanBankTransactionType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// GetByID returns a transaction type owned by the user.
func (s *TransactionTypeService) GetByID(typeID, userID int) (*models.BankTransactionType, error) {
	row := s.db.QueryRow(
		"SELECT "+models.BankTransactionTypeColumns+" FROM bank_transaction_types WHERE id = $1 AND user_id = $2",
		typeID, userID)
	t, err := models.ScanBankTransactionType(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Transaction type not found")
	}
	return t, err
}

func (s *TransactionTypeService) Create(userID int, req *TransactionTypeRequest) (*models.BankTransactionType, error) {
	var typeID int
	err := s.db.QueryRow(
		"INSERT INTO bank_transaction_types (user_id, name, kind) VALUES ($1, $2, $3) RETURNING id",
		userID, req.Name, req.Kind).Scan(&typeID)
	if err != nil {
		return nil, TranslateDBError(err,
			"A transaction type with this name and kind already exists", "")
	}
	return &models.BankTransactionType{ID: typeID, UserID: userID, Name: req.Name, Kind: req.Kind}, nil
}

func (s *TransactionTypeService) Update(typeID, userID int, req *TransactionTypeRequest) error {
	if _, err := s.GetByID(typeID, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"UPDATE bank_transaction_types SET name = $1, kind = $2 WHERE id = $3 AND user_id = $4",
		req.Name, req.Kind, typeID, userID)
	if err != nil {
		return TranslateDBError(err,
			"A transaction type with this name and kind already exists", "")
	}
	return nil
}

func (s *TransactionTypeService) Delete(typeID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM bank_transaction_types WHERE id = $1 AND user_id = $2", typeID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"Transaction type has movements linked to it and cannot be deleted")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Transaction type not found")
	}
	return nil
}

// HTTP handlers.

func (s *TransactionTypeService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	types, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[TXTYPE] Failed to list transaction types for user %d: %v", userID, err)
		http.Error(w, "Failed to list transaction types", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "transaction_types/list", map[string]any{"Types": types})
}

func (s *TransactionTypeService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "transaction_types/form", map[string]any{"Type": nil})
}

func (s *TransactionTypeService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	t, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	s.render.HTML(w, r, "transaction_types/form", map[string]any{"Type": t})
}

func (s *TransactionTypeService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types/new", "[TXTYPE]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/transaction-types/new", "[TXTYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/transaction-types", "success", "Transaction type created.")
}

func (s *TransactionTypeService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	if err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/transaction-types", "success", "Transaction type updated.")
}

func (s *TransactionTypeService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/transaction-types", "[TXTYPE]", err)
		return
	}
	s.render.Redirect(w, r, "/transaction-types", "success", "Transaction type deleted.")
}

func (s *TransactionTypeService) parseForm(r *http.Request) (*TransactionTypeRequest, error) {
	req := &TransactionTypeRequest{
		Name: r.PostFormValue("name"),
		Kind: r.PostFormValue("kind"),
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
