package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// MovementService manages bank movements and the account balance updates
// they imply. Every mutating use case runs the movement write and the
// balance write in one database transaction: a failure of either rolls back
// both.
type MovementService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// MovementRequest is the bank movement form payload.
type MovementRequest struct {
	AccountID         int    `validate:"required,gt=0"`
	TransactionTypeID int    `validate:"required,gt=0"`
	Kind              string `validate:"required,oneof=Income Expense"`
	Date              time.Time
	Amount            decimal.Decimal
}

func NewMovementService(db *sql.DB, render *Renderer) *MovementService {
	return &MovementService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// signedEffect is the balance adjustment a movement applies: +|amount| for
// Income, -|amount| for Expense.
func signedEffect(kind string, amount decimal.Decimal) decimal.Decimal {
	if kind == models.MovementIncome {
		return amount.Abs()
	}
	return amount.Abs().Neg()
}

// ListByUser returns all of a user's bank movements, newest first.
func (s *MovementService) ListByUser(userID int) ([]*models.BankMovement, error) {
	rows, err := s.db.Query(
		"SELECT "+models.BankMovementColumns+" FROM bank_movements WHERE user_id = $1 ORDER BY movement_date DESC, account_id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*models.BankMovement
	for rows.Next() {
		movement, err := models.ScanBankMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}

// GetByID returns a movement owned by the user.
func (s *MovementService) GetByID(movementID, userID int) (*models.BankMovement, error) {
	row := s.db.QueryRow(
		"SELECT "+models.BankMovementColumns+" FROM bank_movements WHERE id = $1 AND user_id = $2",
		movementID, userID)
	movement, err := models.ScanBankMovement(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Bank movement not found")
	}
	return movement, err
}

// Add records a movement and applies its effect to the account balance,
// rejecting it when the projected balance would fall below the negative
// overdraft limit.
func (s *MovementService) Add(userID int, req *MovementRequest) (*models.BankMovement, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.accountTx(tx, req.AccountID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkTypeKindTx(tx, req.TransactionTypeID, userID, req.Kind); err != nil {
		return nil, err
	}

	effect := signedEffect(req.Kind, req.Amount)
	if err := checkOverdraft(account, account.CurrentBalance.Add(effect)); err != nil {
		return nil, err
	}

	var movementID int
	err = tx.QueryRow(
		`INSERT INTO bank_movements (user_id, account_id, transaction_type_id, movement_date, amount, kind)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		userID, req.AccountID, req.TransactionTypeID, req.Date, req.Amount.Abs(), req.Kind).Scan(&movementID)
	if err != nil {
		return nil, TranslateDBError(err,
			"A bank movement with this exact combination already exists",
			"Bank account or transaction type not found")
	}

	if err := s.adjustBalanceTx(tx, req.AccountID, userID, effect); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.BankMovement{
		ID: movementID, UserID: userID, AccountID: req.AccountID,
		TransactionTypeID: req.TransactionTypeID, Date: req.Date,
		Amount: req.Amount.Abs(), Kind: req.Kind,
	}, nil
}

// Update reverses the old movement's effect against its account, applies
// the new effect against the (possibly different) target account, and
// validates the overdraft limit on the destination only.
func (s *MovementService) Update(movementID, userID int, req *MovementRequest) (*models.BankMovement, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := s.movementTx(tx, movementID, userID)
	if err != nil {
		return nil, err
	}

	oldAccount, err := s.accountTx(tx, current.AccountID, userID)
	if err != nil {
		return nil, err
	}

	newAccount := oldAccount
	if current.AccountID != req.AccountID {
		newAccount, err = s.accountTx(tx, req.AccountID, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.checkTypeKindTx(tx, req.TransactionTypeID, userID, req.Kind); err != nil {
		return nil, err
	}

	reversal := current.Effect().Neg()
	effect := signedEffect(req.Kind, req.Amount)

	var projected decimal.Decimal
	if current.AccountID != req.AccountID {
		projected = newAccount.CurrentBalance.Add(effect)
	} else {
		projected = oldAccount.CurrentBalance.Add(reversal).Add(effect)
	}
	if err := checkOverdraft(newAccount, projected); err != nil {
		return nil, err
	}

	if err := s.adjustBalanceTx(tx, current.AccountID, userID, reversal); err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`UPDATE bank_movements
		 SET account_id = $1, transaction_type_id = $2, movement_date = $3, amount = $4, kind = $5
		 WHERE id = $6 AND user_id = $7`,
		req.AccountID, req.TransactionTypeID, req.Date, req.Amount.Abs(), req.Kind, movementID, userID)
	if err != nil {
		return nil, TranslateDBError(err,
			"Another bank movement with this exact combination already exists",
			"Bank account or transaction type not found")
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, fmt.Errorf("movement %d disappeared during update", movementID)
	}

	if err := s.adjustBalanceTx(tx, req.AccountID, userID, effect); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.BankMovement{
		ID: movementID, UserID: userID, AccountID: req.AccountID,
		TransactionTypeID: req.TransactionTypeID, Date: req.Date,
		Amount: req.Amount.Abs(), Kind: req.Kind,
	}, nil
}

// Delete removes a movement and applies its reversal to the account. The
// reversal is applied unconditionally; no overdraft check runs on delete.
func (s *MovementService) Delete(movementID, userID int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	movement, err := s.movementTx(tx, movementID, userID)
	if err != nil {
		return err
	}

	if err := s.adjustBalanceTx(tx, movement.AccountID, userID, movement.Effect().Neg()); err != nil {
		return err
	}

	result, err := tx.Exec(
		"DELETE FROM bank_movements WHERE id = $1 AND user_id = $2", movementID, userID)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return NewValidationError("Bank movement not found")
	}

	return tx.Commit()
}

func checkOverdraft(account *models.BankAccount, projected decimal.Decimal) error {
	if projected.LessThan(account.OverdraftLimit.Neg()) {
		return NewValidationError(
			"Movement exceeds the overdraft limit. Current balance: %s, limit: %s, projected balance: %s",
			account.CurrentBalance.StringFixed(2), account.OverdraftLimit.StringFixed(2), projected.StringFixed(2))
	}
	return nil
}

// checkTypeKindTx rejects mismatched pairings between the movement kind and
// the transaction type's kind: Income movements take Credit types, Expense
// movements take Debit types.
func (s *MovementService) checkTypeKindTx(tx *sql.Tx, typeID, userID int, movementKind string) error {
	var typeKind string
	err := tx.QueryRow(
		"SELECT kind FROM bank_transaction_types WHERE id = $1 AND user_id = $2",
		typeID, userID).Scan(&typeKind)
	if err == sql.ErrNoRows {
		return NewValidationError("Transaction type not found")
	}
	if err != nil {
		return err
	}
	if movementKind == models.MovementIncome && typeKind != models.TransactionCredit {
		return NewValidationError("Income movements require a Credit transaction type")
	}
	if movementKind == models.MovementExpense && typeKind != models.TransactionDebit {
		return NewValidationError("Expense movements require a Debit transaction type")
	}
	return nil
}

func (s *MovementService) accountTx(tx *sql.Tx, accountID, userID int) (*models.BankAccount, error) {
	row := tx.QueryRow(
		"SELECT "+models.BankAccountColumns+" FROM bank_accounts WHERE id = $1 AND user_id = $2",
		accountID, userID)
	account, err := models.ScanBankAccount(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Bank account not found")
	}
	return account, err
}

func (s *MovementService) movementTx(tx *sql.Tx, movementID, userID int) (*models.BankMovement, error) {
	row := tx.QueryRow(
		"SELECT "+models.BankMovementColumns+" FROM bank_movements WHERE id = $1 AND user_id = $2",
		movementID, userID)
	movement, err := models.ScanBankMovement(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("Bank movement not found")
	}
	return movement, err
}

func (s *MovementService) adjustBalanceTx(tx *sql.Tx, accountID, userID int, delta decimal.Decimal) error {
	result, err := tx.Exec(
		"UPDATE bank_accounts SET current_balance = current_balance + $1 WHERE id = $2 AND user_id = $3",
		delta, accountID, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("balance update touched no rows for account %d", accountID)
	}
	return nil
}

// HTTP handlers.

func (s *MovementService) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	movements, err := s.ListByUser(userID)
	if err != nil {
		log.Printf("[MOVEMENT] Failed to list movements for user %d: %v", userID, err)
		http.Error(w, "Failed to list bank movements", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "movements/list", map[string]any{"Movements": movements})
}

func (s *MovementService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, nil)
}

func (s *MovementService) EditForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	movement, err := s.GetByID(id, userID)
	if err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	s.renderForm(w, r, movement)
}

func (s *MovementService) renderForm(w http.ResponseWriter, r *http.Request, movement *models.BankMovement) {
	userID, _ := middleware.UserID(r.Context())
	accounts, err := NewAccountService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[MOVEMENT] Failed to load accounts for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	types, err := NewTransactionTypeService(s.db, s.render).ListByUser(userID)
	if err != nil {
		log.Printf("[MOVEMENT] Failed to load transaction types for form: %v", err)
		http.Error(w, "Failed to load form", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "movements/form", map[string]any{
		"Movement": movement,
		"Accounts": accounts,
		"Types":    types,
	})
}

func (s *MovementService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/movements/new", "[MOVEMENT]", err)
		return
	}
	if _, err := s.Add(userID, req); err != nil {
		s.render.Fail(w, r, "/movements/new", "[MOVEMENT]", err)
		return
	}
	s.render.Redirect(w, r, "/movements", "success", "Bank movement recorded.")
}

func (s *MovementService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	if _, err := s.Update(id, userID, req); err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	s.render.Redirect(w, r, "/movements", "success", "Bank movement updated.")
}

func (s *MovementService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	if err := s.Delete(id, userID); err != nil {
		s.render.Fail(w, r, "/movements", "[MOVEMENT]", err)
		return
	}
	s.render.Redirect(w, r, "/movements", "success", "Bank movement deleted.")
}

func (s *MovementService) parseForm(r *http.Request) (*MovementRequest, error) {
	accountID, err := formInt(r, "account_id")
	if err != nil {
		return nil, err
	}
	typeID, err := formInt(r, "transaction_type_id")
	if err != nil {
		return nil, err
	}
	date, err := formDate(r, "movement_date")
	if err != nil {
		return nil, err
	}
	amount, err := formDecimal(r, "amount")
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, NewValidationError("Amount must not be zero")
	}

	req := &MovementRequest{
		AccountID:         accountID,
		TransactionTypeID: typeID,
		Kind:              r.PostFormValue("kind"),
		Date:              date,
		Amount:            amount,
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
