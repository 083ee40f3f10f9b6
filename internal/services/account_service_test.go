package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountService_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)

	req := &AccountRequest{
		Bank:           "Acme Bank",
		Branch:         "0001",
		AccountNumber:  "12345-6",
		AccountType:    "Checking",
		OpeningBalance: decimal.RequireFromString("250.00"),
		OverdraftLimit: decimal.RequireFromString("100.00"),
	}

	t.Run("current balance starts at the opening balance", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO bank_accounts").
			WithArgs(1, "Acme Bank", "0001", "12345-6", "Checking", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnRows(accountRow(10, 1, "250.00", "250.00", "100.00"))

		account, err := service.Create(1, req)
		assert.NoError(t, err)
		assert.Equal(t, 10, account.ID)
		assert.True(t, account.CurrentBalance.Equal(account.OpeningBalance))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate account translates to a friendly message", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO bank_accounts").
			WithArgs(1, "Acme Bank", "0001", "12345-6", "Checking", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := service.Create(1, req)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)

	t.Run("update of another user's account fails the ownership check", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 2).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "bank", "branch", "account_number", "account_type",
				"opening_balance", "current_balance", "overdraft_limit",
			}))

		_, err := service.Update(10, 2, &AccountRequest{})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)

	t.Run("successful delete", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, service.Delete(10, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account with movements is protected", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(10, 1).
			WillReturnError(&pq.Error{Code: "23503"})

		err := service.Delete(10, 1)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "movements linked")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM bank_accounts WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(99, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.Delete(99, 1)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
