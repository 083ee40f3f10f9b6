package services

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func loginRequest(login, password string) *http.Request {
	form := url.Values{"login": {login}, "password": {password}}
	r := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	viper.Set("session.secret_key", "test-secret")
	viper.Set("session.expiry_hours", 12)

	service := NewAuthService(db, nil, &Renderer{})

	userRows := func(hash string, active bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "email", "login", "password_hash", "is_admin", "is_active"}).
			AddRow(1, "Jo Silva", "jo@example.com", "jsilva", hash, false, active)
	}

	t.Run("successful login sets the session cookie", func(t *testing.T) {
		hash, err := HashPassword("correct-horse")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE login = \\$1").
			WithArgs("jsilva").
			WillReturnRows(userRows(hash, true))

		w := httptest.NewRecorder()
		service.Login(w, loginRequest("jsilva", "correct-horse"))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		var sessionCookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == "fw_session" {
				sessionCookie = c
			}
		}
		assert.NotNil(t, sessionCookie)
		assert.NotEmpty(t, sessionCookie.Value)
		assert.True(t, sessionCookie.HttpOnly)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password bounces back to login", func(t *testing.T) {
		hash, err := HashPassword("correct-horse")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE login = \\$1").
			WithArgs("jsilva").
			WillReturnRows(userRows(hash, true))

		w := httptest.NewRecorder()
		service.Login(w, loginRequest("jsilva", "battery-staple"))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.Empty(t, w.Result().Cookies())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deactivated user is rejected", func(t *testing.T) {
		hash, err := HashPassword("correct-horse")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE login = \\$1").
			WithArgs("jsilva").
			WillReturnRows(userRows(hash, false))

		w := httptest.NewRecorder()
		service.Login(w, loginRequest("jsilva", "correct-horse"))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown login", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE login = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "login", "password_hash", "is_admin", "is_active"}))

		w := httptest.NewRecorder()
		service.Login(w, loginRequest("ghost", "whatever"))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword"

	hashed, err := HashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, VerifyPassword(password, hashed))
	assert.False(t, VerifyPassword("wrongpassword", hashed))
	assert.False(t, VerifyPassword(password, "not-a-digest"))
}

func TestGenerateSessionToken(t *testing.T) {
	viper.Set("session.secret_key", "test-secret")
	viper.Set("session.expiry_hours", 12)

	token, expiry, err := GenerateSessionToken(123, true)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiry.After(time.Now()))

	// Two tokens for the same user differ by their token id.
	other, _, err := GenerateSessionToken(123, true)
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}
