package models

// User is an application user. PasswordHash holds the argon2id digest in
// "salt$hash" base64 form.
type User struct {
	ID           int    `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	Login        string `db:"login"`
	PasswordHash string `db:"password_hash"`
	IsAdmin      bool   `db:"is_admin"`
	IsActive     bool   `db:"is_active"`
}

// UserColumns is the canonical select list for the users table.
const UserColumns = "id, name, email, login, password_hash, is_admin, is_active"

func ScanUser(s RowScanner) (*User, error) {
	var u User
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Login, &u.PasswordHash, &u.IsAdmin, &u.IsActive); err != nil {
		return nil, err
	}
	return &u, nil
}
