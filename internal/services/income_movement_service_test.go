package services

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hetfieldh/financas-web/internal/models"
)

func incomeMovementForm(values url.Values) *http.Request {
	r := httptest.NewRequest("POST", "/income-movements", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func incomeKindQuery(mock sqlmock.Sqlmock, typeID, userID int, kind string) {
	mock.ExpectQuery("SELECT kind FROM income_types WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(typeID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow(kind))
}

func TestIncomeMovementService_ParseForm(t *testing.T) {
	service := NewIncomeMovementService(nil, nil)

	t.Run("zero amount is rejected", func(t *testing.T) {
		_, err := service.parseForm(incomeMovementForm(url.Values{
			"income_type_id": {"5"},
			"ref_month":      {"2026-03"},
			"payment_month":  {"2026-04"},
			"amount":         {"0.00"},
		}))
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "zero")
	})

	t.Run("negative amount passes the form stage", func(t *testing.T) {
		req, err := service.parseForm(incomeMovementForm(url.Values{
			"income_type_id": {"5"},
			"ref_month":      {"2026-03"},
			"payment_month":  {"2026-04"},
			"amount":         {"-120.50"},
		}))
		assert.NoError(t, err)
		assert.True(t, req.Amount.Equal(decimal.RequireFromString("-120.50")))
	})
}

func TestIncomeMovementService_KindSign(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewIncomeMovementService(db, nil)
	refMonth := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	payMonth := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("positive amount on a deduction is rejected", func(t *testing.T) {
		incomeKindQuery(mock, 5, 1, models.IncomeDeduction)

		_, err := service.Create(1, &IncomeMovementRequest{
			IncomeTypeID: 5,
			RefMonth:     refMonth,
			PaymentMonth: payMonth,
			Amount:       decimal.RequireFromString("120.50"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "negative")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount on an earning is rejected", func(t *testing.T) {
		incomeKindQuery(mock, 5, 1, models.IncomeEarning)

		_, err := service.Create(1, &IncomeMovementRequest{
			IncomeTypeID: 5,
			RefMonth:     refMonth,
			PaymentMonth: payMonth,
			Amount:       decimal.RequireFromString("-120.50"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "positive")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount on a deduction is stored", func(t *testing.T) {
		incomeKindQuery(mock, 5, 1, models.IncomeDeduction)
		mock.ExpectQuery("INSERT INTO income_movements").
			WithArgs(1, 5, refMonth, payMonth, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		movement, err := service.Create(1, &IncomeMovementRequest{
			IncomeTypeID: 5,
			RefMonth:     refMonth,
			PaymentMonth: payMonth,
			Amount:       decimal.RequireFromString("-120.50"),
		})
		assert.NoError(t, err)
		assert.Equal(t, 42, movement.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("type owned by someone else", func(t *testing.T) {
		mock.ExpectQuery("SELECT kind FROM income_types WHERE id = \\$1 AND user_id = \\$2").
			WithArgs(5, 2).
			WillReturnRows(sqlmock.NewRows([]string{"kind"}))

		_, err := service.Create(2, &IncomeMovementRequest{
			IncomeTypeID: 5,
			RefMonth:     refMonth,
			PaymentMonth: payMonth,
			Amount:       decimal.RequireFromString("50.00"),
		})
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
