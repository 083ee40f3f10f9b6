package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hetfieldh/financas-web/internal/models"
)

func accountRow(id, userID int, opening, current, limit string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "bank", "branch", "account_number", "account_type",
		"opening_balance", "current_balance", "overdraft_limit",
	}).AddRow(id, userID, "Acme Bank", "0001", "12345-6", "Checking", opening, current, limit)
}

func movementRow(id, userID, accountID, typeID int, date time.Time, amount, kind string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "account_id", "transaction_type_id", "movement_date", "amount", "kind",
	}).AddRow(id, userID, accountID, typeID, date, amount, kind)
}

func typeKindQuery(mock sqlmock.Sqlmock, typeID, userID int, kind string) {
	mock.ExpectQuery("SELECT kind FROM bank_transaction_types WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(typeID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow(kind))
}

func TestMovementService_Add(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewMovementService(db, nil)
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("income within limit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "500.00", "0.00"))
		typeKindQuery(mock, 3, 1, models.TransactionCredit)
		mock.ExpectQuery("INSERT INTO bank_movements").
			WithArgs(1, 10, 3, date, sqlmock.AnyArg(), models.MovementIncome).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
		mock.ExpectExec("UPDATE bank_accounts SET current_balance = current_balance \\+ \\$1").
			WithArgs(sqlmock.AnyArg(), 10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		movement, err := service.Add(1, &MovementRequest{
			AccountID:         10,
			TransactionTypeID: 3,
			Kind:              models.MovementIncome,
			Date:              date,
			Amount:            decimal.RequireFromString("150.00"),
		})
		assert.NoError(t, err)
		assert.Equal(t, 77, movement.ID)
		assert.True(t, movement.Effect().Equal(decimal.RequireFromString("150.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expense breaching overdraft limit is rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "100.00", "50.00"))
		typeKindQuery(mock, 3, 1, models.TransactionDebit)
		mock.ExpectRollback()

		_, err := service.Add(1, &MovementRequest{
			AccountID:         10,
			TransactionTypeID: 3,
			Kind:              models.MovementExpense,
			Date:              date,
			Amount:            decimal.RequireFromString("200.00"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "overdraft limit")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expense landing exactly on the limit is accepted", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "100.00", "50.00"))
		typeKindQuery(mock, 3, 1, models.TransactionDebit)
		mock.ExpectQuery("INSERT INTO bank_movements").
			WithArgs(1, 10, 3, date, sqlmock.AnyArg(), models.MovementExpense).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(78))
		mock.ExpectExec("UPDATE bank_accounts SET current_balance = current_balance \\+ \\$1").
			WithArgs(sqlmock.AnyArg(), 10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := service.Add(1, &MovementRequest{
			AccountID:         10,
			TransactionTypeID: 3,
			Kind:              models.MovementExpense,
			Date:              date,
			Amount:            decimal.RequireFromString("150.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income with a debit type is rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "500.00", "0.00"))
		typeKindQuery(mock, 3, 1, models.TransactionDebit)
		mock.ExpectRollback()

		_, err := service.Add(1, &MovementRequest{
			AccountID:         10,
			TransactionTypeID: 3,
			Kind:              models.MovementIncome,
			Date:              date,
			Amount:            decimal.RequireFromString("25.00"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "Credit transaction type")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account owned by someone else", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 2).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "bank", "branch", "account_number", "account_type",
				"opening_balance", "current_balance", "overdraft_limit",
			}))
		mock.ExpectRollback()

		_, err := service.Add(2, &MovementRequest{
			AccountID:         10,
			TransactionTypeID: 3,
			Kind:              models.MovementIncome,
			Date:              date,
			Amount:            decimal.RequireFromString("10.00"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementService_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewMovementService(db, nil)
	oldDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	newDate := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	t.Run("move expense to another account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_movements WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(77, 1).
			WillReturnRows(movementRow(77, 1, 10, 3, oldDate, "150.00", models.MovementExpense))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "350.00", "0.00"))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(11, 1).
			WillReturnRows(accountRow(11, 1, "0.00", "300.00", "0.00"))
		typeKindQuery(mock, 3, 1, models.TransactionDebit)
		// Reversal against the old account, then the rewrite, then the new effect.
		mock.ExpectExec("UPDATE bank_accounts SET current_balance = current_balance \\+ \\$1").
			WithArgs(sqlmock.AnyArg(), 10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE bank_movements").
			WithArgs(11, 3, newDate, sqlmock.AnyArg(), models.MovementExpense, 77, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE bank_accounts SET current_balance = current_balance \\+ \\$1").
			WithArgs(sqlmock.AnyArg(), 11, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := service.Update(77, 1, &MovementRequest{
			AccountID:         11,
			TransactionTypeID: 3,
			Kind:              models.MovementExpense,
			Date:              newDate,
			Amount:            decimal.RequireFromString("150.00"),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("destination breaching its limit is rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_movements WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(77, 1).
			WillReturnRows(movementRow(77, 1, 10, 3, oldDate, "150.00", models.MovementExpense))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "500.00", "350.00", "0.00"))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(11, 1).
			WillReturnRows(accountRow(11, 1, "0.00", "20.00", "0.00"))
		typeKindQuery(mock, 3, 1, models.TransactionDebit)
		mock.ExpectRollback()

		_, err := service.Update(77, 1, &MovementRequest{
			AccountID:         11,
			TransactionTypeID: 3,
			Kind:              models.MovementExpense,
			Date:              newDate,
			Amount:            decimal.RequireFromString("150.00"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMovementService_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewMovementService(db, nil)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("reversal is applied even past the limit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_movements WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(77, 1).
			WillReturnRows(movementRow(77, 1, 10, 3, date, "150.00", models.MovementIncome))
		mock.ExpectExec("UPDATE bank_accounts SET current_balance = current_balance \\+ \\$1").
			WithArgs(sqlmock.AnyArg(), 10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM bank_movements WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(77, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.Delete(77, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown movement", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM bank_movements WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(99, 1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "account_id", "transaction_type_id", "movement_date", "amount", "kind",
			}))
		mock.ExpectRollback()

		err := service.Delete(99, 1)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
