package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/viper"

	"github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/models"
)

// UserService manages the user accounts of the application. All of its
// HTTP handlers sit behind the admin gate.
type UserService struct {
	db        *sql.DB
	render    *Renderer
	validator *ValidationHelper
}

// UserRequest is the user form payload. Password is optional on update; an
// empty value keeps the stored hash.
type UserRequest struct {
	Name     string `validate:"required,max=150"`
	Email    string `validate:"required,email,max=150"`
	Login    string `validate:"required,alphanum,min=3,max=50"`
	Password string `validate:"omitempty,min=8"`
	IsAdmin  bool
	IsActive bool
}

func NewUserService(db *sql.DB, render *Renderer) *UserService {
	return &UserService{
		db:        db,
		render:    render,
		validator: NewValidationHelper(),
	}
}

// EnsureAdminUser seeds the initial administrator when the users table is
// empty, with credentials taken from configuration. Runs at startup after
// migrations.
func (s *UserService) EnsureAdminUser() error {
	viper.SetDefault("admin.login", "admin")
	viper.SetDefault("admin.email", "admin@localhost")
	viper.SetDefault("admin.password", "changeme123")
	viper.BindEnv("admin.login", "ADMIN_LOGIN")
	viper.BindEnv("admin.email", "ADMIN_EMAIL")
	viper.BindEnv("admin.password", "ADMIN_PASSWORD")

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(viper.GetString("admin.password"))
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO users (name, email, login, password_hash, is_admin, is_active)
		 VALUES ($1, $2, $3, $4, TRUE, TRUE)`,
		"Administrator", viper.GetString("admin.email"), viper.GetString("admin.login"), hash)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Printf("[USER] Seeded initial admin user %q", viper.GetString("admin.login"))
	return nil
}

func (s *UserService) ListAll() ([]*models.User, error) {
	rows, err := s.db.Query("SELECT " + models.UserColumns + " FROM users ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := models.ScanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *UserService) GetByID(userID int) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+models.UserColumns+" FROM users WHERE id = $1", userID)
	u, err := models.ScanUser(row)
	if err == sql.ErrNoRows {
		return nil, NewValidationError("User not found")
	}
	return u, err
}

func (s *UserService) Create(req *UserRequest) (*models.User, error) {
	if req.Password == "" {
		return nil, NewValidationError("Password is required for new users")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var userID int
	err = s.db.QueryRow(
		`INSERT INTO users (name, email, login, password_hash, is_admin, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.Name, req.Email, req.Login, hash, req.IsAdmin, req.IsActive).Scan(&userID)
	if err != nil {
		return nil, TranslateDBError(err,
			"A user with this email or login already exists", "")
	}
	return &models.User{
		ID: userID, Name: req.Name, Email: req.Email, Login: req.Login,
		IsAdmin: req.IsAdmin, IsActive: req.IsActive,
	}, nil
}

func (s *UserService) Update(userID int, req *UserRequest) error {
	if _, err := s.GetByID(userID); err != nil {
		return err
	}

	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			`UPDATE users SET name = $1, email = $2, login = $3, password_hash = $4, is_admin = $5, is_active = $6
			 WHERE id = $7`,
			req.Name, req.Email, req.Login, hash, req.IsAdmin, req.IsActive, userID)
		if err != nil {
			return TranslateDBError(err, "A user with this email or login already exists", "")
		}
		return nil
	}

	_, err := s.db.Exec(
		`UPDATE users SET name = $1, email = $2, login = $3, is_admin = $4, is_active = $5 WHERE id = $6`,
		req.Name, req.Email, req.Login, req.IsAdmin, req.IsActive, userID)
	if err != nil {
		return TranslateDBError(err, "A user with this email or login already exists", "")
	}
	return nil
}

// Delete removes a user and, through cascading constraints, everything the
// user owns. The acting admin cannot delete their own account.
func (s *UserService) Delete(userID, actingUserID int) error {
	if userID == actingUserID {
		return NewValidationError("You cannot delete your own account")
	}
	result, err := s.db.Exec("DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewValidationError("User not found")
	}
	return nil
}

// HTTP handlers.

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	users, err := s.ListAll()
	if err != nil {
		log.Printf("[USER] Failed to list users: %v", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	s.render.HTML(w, r, "users/list", map[string]any{"Users": users})
}

func (s *UserService) NewForm(w http.ResponseWriter, r *http.Request) {
	s.render.HTML(w, r, "users/form", map[string]any{"User": nil})
}

func (s *UserService) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	u, err := s.GetByID(id)
	if err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	s.render.HTML(w, r, "users/form", map[string]any{"User": u})
}

func (s *UserService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/users/new", "[USER]", err)
		return
	}
	if _, err := s.Create(req); err != nil {
		s.render.Fail(w, r, "/users/new", "[USER]", err)
		return
	}
	s.render.Redirect(w, r, "/users", "success", "User created.")
}

func (s *UserService) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	req, err := s.parseForm(r)
	if err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	if err := s.Update(id, req); err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	s.render.Redirect(w, r, "/users", "success", "User updated.")
}

func (s *UserService) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actingUserID, _ := middleware.UserID(r.Context())
	id, err := urlID(r)
	if err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	if err := s.Delete(id, actingUserID); err != nil {
		s.render.Fail(w, r, "/users", "[USER]", err)
		return
	}
	s.render.Redirect(w, r, "/users", "success", "User deleted.")
}

func (s *UserService) parseForm(r *http.Request) (*UserRequest, error) {
	req := &UserRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
		IsAdmin:  r.PostFormValue("is_admin") == "on",
		IsActive: r.PostFormValue("is_active") == "on",
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}
