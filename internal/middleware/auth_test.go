package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(viper.GetString("session.secret_key")))
	assert.NoError(t, err)
	return signed
}

func TestValidateSessionToken(t *testing.T) {
	viper.Set("session.secret_key", "test-secret")

	t.Run("valid token", func(t *testing.T) {
		signed := signTestToken(t, jwt.MapClaims{
			"user_id": 42,
			"admin":   true,
			"jti":     "token-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		sess, err := ValidateSessionToken(signed)
		assert.NoError(t, err)
		assert.Equal(t, 42, sess.UserID)
		assert.True(t, sess.IsAdmin)
		assert.Equal(t, "token-1", sess.TokenID)
	})

	t.Run("expired token", func(t *testing.T) {
		signed := signTestToken(t, jwt.MapClaims{
			"user_id": 42,
			"jti":     "token-2",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})

		_, err := ValidateSessionToken(signed)
		assert.Error(t, err)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 42,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("other-secret"))
		assert.NoError(t, err)

		_, err = ValidateSessionToken(signed)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ValidateSessionToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestRequireSession(t *testing.T) {
	viper.Set("session.secret_key", "test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, 42, userID)
		assert.Equal(t, "token-3", SessionID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	freshToken := func() string {
		return signTestToken(t, jwt.MapClaims{
			"user_id": 42,
			"admin":   false,
			"jti":     "token-3",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
	}

	t.Run("no cookie redirects to login", func(t *testing.T) {
		InitSessionMiddleware(nil)
		r := httptest.NewRequest("GET", "/accounts", nil)
		w := httptest.NewRecorder()

		RequireSession(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("valid cookie passes through", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		InitSessionMiddleware(redisClient)
		mock.ExpectExists("blacklist:token-3").SetVal(0)

		r := httptest.NewRequest("GET", "/accounts", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: freshToken()})
		w := httptest.NewRecorder()

		RequireSession(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked session redirects to login", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		InitSessionMiddleware(redisClient)
		mock.ExpectExists("blacklist:token-3").SetVal(1)

		r := httptest.NewRequest("GET", "/accounts", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: freshToken()})
		w := httptest.NewRecorder()

		RequireSession(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("non-admin session is forbidden", func(t *testing.T) {
		viper.Set("session.secret_key", "test-secret")
		InitSessionMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"user_id": 42,
			"admin":   false,
			"jti":     "token-4",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		r := httptest.NewRequest("GET", "/users", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		w := httptest.NewRecorder()

		RequireSession(RequireAdmin(next)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin session passes", func(t *testing.T) {
		viper.Set("session.secret_key", "test-secret")
		InitSessionMiddleware(nil)

		token := signTestToken(t, jwt.MapClaims{
			"user_id": 1,
			"admin":   true,
			"jti":     "token-5",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		r := httptest.NewRequest("GET", "/users", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		w := httptest.NewRecorder()

		RequireSession(RequireAdmin(next)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
