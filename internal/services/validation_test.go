package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type testForm struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
	Age   int    `validate:"required,gte=18"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := testForm{
			Name:  "Jo Silva",
			Email: "jo@example.com",
			Age:   25,
		}
		assert.NoError(t, vh.ValidateStruct(&valid))
	})

	t.Run("violations collapse into one validation error", func(t *testing.T) {
		invalid := testForm{
			Name: "J",
			Age:  16,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "Name")
		assert.Contains(t, err.Error(), "Email")
		assert.Contains(t, err.Error(), "Age")
	})

	t.Run("invalid email format", func(t *testing.T) {
		invalid := testForm{
			Name:  "Jo Silva",
			Email: "not-an-email",
			Age:   25,
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "email")
	})
}

func TestTranslateDBError(t *testing.T) {
	t.Run("unique violation", func(t *testing.T) {
		err := TranslateDBError(&pq.Error{Code: "23505"}, "duplicate thing", "missing parent")
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "duplicate thing", err.Error())
	})

	t.Run("foreign key violation", func(t *testing.T) {
		err := TranslateDBError(&pq.Error{Code: "23503"}, "duplicate thing", "missing parent")
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "missing parent", err.Error())
	})

	t.Run("wrapped violations are still recognized", func(t *testing.T) {
		wrapped := fmt.Errorf("insert failed: %w", &pq.Error{Code: "23505"})
		err := TranslateDBError(wrapped, "duplicate thing", "")
		assert.True(t, IsValidationError(err))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		original := errors.New("connection reset")
		err := TranslateDBError(original, "duplicate thing", "missing parent")
		assert.Equal(t, original, err)
		assert.False(t, IsValidationError(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, TranslateDBError(nil, "a", "b"))
	})
}
