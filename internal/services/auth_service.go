package services

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// AuthService handles login, logout and session issuance.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	render    *Renderer
	validator *ValidationHelper
}

// LoginRequest is the login form payload.
type LoginRequest struct {
	Login    string `validate:"required,min=2"`
	Password string `validate:"required,min=6"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, render *Renderer) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// LoginForm renders the login page.
func (s *AuthService) LoginForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "login", nil)
}

// Login authenticates the submitted credentials and sets the session cookie.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	req := LoginRequest{
		Login:    strings.TrimSpace(r.PostFormValue("login")),
		Password: r.PostFormValue("password"),
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		s.render.Redirect(w, r, "/login", "danger", "Enter your login and password.")
		return
	}

	row := s.db.QueryRow("SELECT "+models.UserColumns+" FROM users WHERE login = $1", req.Login)
	user, err := models.ScanUser(row)
	if err != nil {
		log.Printf("[AUTH] User not found for login: %s", req.Login)
		s.render.Redirect(w, r, "/login", "danger", "Invalid credentials.")
		return
	}

	if !user.IsActive {
		log.Printf("[AUTH] Inactive user rejected: %s", req.Login)
		s.render.Redirect(w, r, "/login", "danger", "This account is deactivated.")
		return
	}

	if !VerifyPassword(req.Password, user.PasswordHash) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Login)
		s.render.Redirect(w, r, "/login", "danger", "Invalid credentials.")
		return
	}

	token, expiry, err := GenerateSessionToken(user.ID, user.IsAdmin)
	if err != nil {
		log.Printf("[AUTH] Session token generation failed for user %d: %v", user.ID, err)
		s.render.Redirect(w, r, "/login", "danger", "An unexpected error occurred. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout revokes the current session token and clears the cookie.
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionID(r.Context()); sessionID != "" && s.redis != nil {
		key := fmt.Sprintf("blacklist:%s", sessionID)
		expiry := time.Duration(viper.GetInt("session.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), key, "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist session: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// GenerateSessionToken issues a signed session token with a unique token id
// so it can be revoked on logout.
func GenerateSessionToken(userID int, isAdmin bool) (string, time.Time, error) {
	viper.SetDefault("session.expiry_hours", 12)
	expiry := time.Now().Add(time.Duration(viper.GetInt("session.expiry_hours")) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"admin":   isAdmin,
		"jti":     uuid.NewString(),
		"exp":     expiry.Unix(),
	})

	signed, err := token.SignedString([]byte(viper.GetString("session.secret_key")))
	return signed, expiry, err
}

// HashPassword derives an argon2id digest, encoded as "salt$hash" base64.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength())
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks a password against a stored "salt$hash" digest.
func VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}

func argonSaltLength() int {
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	return viper.GetInt("argon2.salt_length")
}
