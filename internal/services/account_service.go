package services

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// AccountService manages bank accounts.
type AccountService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// AccountRequest is the bank account form payload. Monetary fields are
// parsed separately into decimals.
type AccountRequest struct {
	Bank           string `validate:"required,max=255"`
	Branch         string `validate:"required,len=4"`
	AccountNumber  string `validate:"required,max=20"`
	AccountType    string `validate:"required,max=50"`
	OpeningBalance decimal.Decimal
	OverdraftLimit decimal.Decimal
}

func NewAccountService(db *sql.DB, render *Renderer) *AccountService {
	return &AccountService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// ListByUser returns all of a user's bank accounts.
func (s *AccountService) ListByUser(userID int) ([]*models.BankAccount, error) {
	rows, err := s.db.Query(
		"SELECT "+models.BankAccountColumns+" FROM bank_accounts WHERE user_id = $1 ORDER BY bank, account_type",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.BankAccount
	for rows.Next() {
		account, err := models.ScanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetByID returns a bank account owned by the user, or a validation error
// when the id does not exist or belongs to someone else.
func (s *AccountService) GetByID(accountID, userID int) (*models.BankAccount, error) {
	row := s.db.QueryRow(
		"SELECT "+models.BankAccountColumns+" FROM bank_accounts WHERE id = $1 AND user_id = $2",
		accountID, userID)
	account, err := models.ScanBankAccount(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Bank account not found")
	}
	return account, err
}

// Create inserts a bank account. The current balance starts at the opening
// balance; movements maintain it afterwards.
func (s *AccountService) Create(userID int, req *AccountRequest) (*models.BankAccount, error) {
	var id int
	err := s.db.QueryRow(
		`INSERT INTO bank_accounts (user_id, bank, branch, account_number, account_type, opening_balance, current_balance, overdraft_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $6, $7) RETURNING id`,
		userID, req.Bank, req.Branch, req.AccountNumber, req.AccountType,
		req.OpeningBalance, req.OverdraftLimit).Scan(&id)
	if err != nil {
		return nil, TranslateDBError(err,
			"A bank account with this bank, branch, number and type already exists",
			"User not found")
	}
	return s.GetByID(id, userID)
}

// Update changes a bank account's descriptive fields, opening balance and
// overdraft limit. The current balance is managed by movements only.
func (s *AccountService) Update(accountID, userID int, req *AccountRequest) (*models.BankAccount, error) {
	if _, err := s.GetByID(accountID, userID); err != nil {
		return nil, err
	}

	_, err := s.db.Exec(
		`UPDATE bank_accounts
		 SET bank = $1, branch = $2, account_number = $3, account_type = $4, opening_balance = $5, overdraft_limit = $6
		 WHERE id = $7 AND user_id = $8`,
		req.Bank, req.Branch, req.AccountNumber, req.AccountType,
		req.OpeningBalance, req.OverdraftLimit, accountID, userID)
	if err != nil {
		return nil, TranslateDBError(err,
			"Another bank account with this bank, branch, number and type already exists",
			"User not found")
	}
	return s.GetByID(accountID, userID)
}

// Delete removes a bank account owned by the user.
func (s *AccountService) Delete(accountID, userID int) error {
	result, err := s.db.Exec(
		"DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2", accountID, userID)
	if err != nil {
		return TranslateDBError(err, "",
			"This bank account has movements linked to it. Remove them first.")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("Bank account not found")
	}
	return nil
}

// HTTP handlers.

func (s *AccountService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	accounts, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to list accounts for user %d: %v", userID, err)
		http.Error(w, "Failed to list bank accounts", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "accounts/list", map[string]any{"Accounts": accounts})
}

func (s *AccountService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "accounts/form", nil)
}

func (s *AccountService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	account, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	s.render.HTML(w, r, "accounts/form", map[string]any{"Account": account})
}

func (s *AccountService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/accounts/new", "[ACCOUNT]", err)
		return
	}
	if _, err := s.Create(userID, req); err != nil {
		s.render.Fail(w, r, "/accounts/new", "[ACCOUNT]", err)
		return
	}
	s.render.Redirect(w, r, "/accounts", "success", "Bank account created.")
}

func (s *AccountService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	if _, err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	s.render.Redirect(w, r, "/accounts", "success", "Bank account updated.")
}

func (s *AccountService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/accounts", "[ACCOUNT]", err)
		return
	}
	s.render.Redirect(w, r, "/accounts", "success", "Bank account deleted.")
}

func (s *AccountService) parseForm(r *http.Request) (*AccountRequest, error) {
	opening, err := formDecimal(r, "opening_balance")
	if err != nil {
		return nil, err
	}
	limit, err := formDecimal(r, "overdraft_limit")
	if err != nil {
		return nil, err
	}
	if limit.IsNegative() {
		return nil, NewValidationError("Overdraft limit must not be negative")
	}

	req := &AccountRequest{
		Bank:           strings.TrimSpace(r.PostFormValue("bank")),
		Branch:         strings.TrimSpace(r.PostFormValue("branch")),
		AccountNumber:  strings.TrimSpace(r.PostFormValue("account_number")),
		AccountType:    strings.TrimSpace(r.PostFormValue("account_type")),
		OpeningBalance: opening,
		OverdraftLimit: limit,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
