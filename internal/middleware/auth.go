package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// SessionCookie is the name of the cookie that carries the signed session
// token.
const SessionCookie = "fw_session"

type contextKey string

const (
	// UserIDKey holds the authenticated user's id (int) in the request context.
	UserIDKey contextKey = "userID"
	// IsAdminKey holds the authenticated user's admin flag (bool).
	IsAdminKey contextKey = "isAdmin"
	// SessionIDKey holds the session token id (jti, string), used to key
	// flash messages and logout revocation.
	SessionIDKey contextKey = "sessionID"
)

// Session is the decoded content of a session token.
type Session struct {
	UserID  int
	IsAdmin bool
	TokenID string
}

var sessionRedis *redis.Client

// InitSessionMiddleware wires the Redis client used for session revocation.
// A nil client disables revocation checks.
func InitSessionMiddleware(redisClient *redis.Client) {
	sessionRedis = redisClient
}

// RequireSession authenticates the request from the session cookie and puts
// the user identity into the request context. Unauthenticated requests are
// redirected to the login page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sess, err := ValidateSessionToken(cookie.Value)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if sessionRedis != nil {
			key := fmt.Sprintf("blacklist:%s", sess.TokenID)
			if exists, err := sessionRedis.Exists(r.Context(), key).Result(); err == nil && exists > 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, sess.UserID)
		ctx = context.WithValue(ctx, IsAdminKey, sess.IsAdmin)
		ctx = context.WithValue(ctx, SessionIDKey, sess.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin sessions. It must run after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAdmin, ok := r.Context().Value(IsAdminKey).(bool)
		if !ok || !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateSessionToken parses and verifies a session token string.
func ValidateSessionToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("session.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid session claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("session token missing user_id")
	}
	isAdmin, _ := claims["admin"].(bool)
	tokenID, _ := claims["jti"].(string)

	return &Session{UserID: int(userID), IsAdmin: isAdmin, TokenID: tokenID}, nil
}

// UserID extracts the authenticated user id from a request context.
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}

// SessionID extracts the session token id from a request context.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}
