package services

import (
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/avelar/taskhive-be/internal/auth"
	"github.com/avelar/taskhive-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id int64) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	Register(email, username, password string) (models.User, error)
	Authenticate(email, password string) (models.User, error)
	DeleteUser(id int64) error
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Timestamps are persisted as Unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id int64) (models.User, error) {
	var user models.User
	var createdAt int64
	row := s.db.QueryRow("SELECT id, email, username, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the
// password hash. Lookup is an exact match on the stored email.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	var user models.User
	var createdAt int64
	row := s.db.QueryRow("SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// Register validates the supplied fields, hashes the password and creates a
// new user. The email pre-check gives a friendly error, but the UNIQUE
// constraint on users.email remains the final arbiter: a concurrent insert
// slipping past the check still surfaces as ErrDuplicateEmail.
func (s *UserService) Register(email, username, password string) (models.User, error) {
	if n := utf8.RuneCountInString(username); n < 2 || n > 50 {
		return models.User{}, &ValidationError{Field: "username", Message: "must be between 2 and 50 characters"}
	}
	// Measured in bytes: the upper bound is bcrypt's maximum input length.
	if len(password) < 6 || len(password) > 72 {
		return models.User{}, &ValidationError{Field: "password", Message: "must be between 6 and 72 bytes"}
	}

	if _, err := s.GetUserByEmail(email); err == nil {
		return models.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO users(email, username, password_hash, created_at) VALUES(?, ?, ?, ?)",
		email, username, hash, toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	return models.User{
		ID:        id,
		Email:     email,
		Username:  username,
		CreatedAt: fromMillis(toMillis(now)),
	}, nil
}

// Authenticate verifies a user's credentials. An unknown email and a wrong
// password produce the same failure.
func (s *UserService) Authenticate(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrAuthenticationFailed
		}
		return models.User{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrAuthenticationFailed
	}

	// Don't hand the password hash to callers
	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes a user account. The tasks foreign key cascades, so all
// of the user's tasks go with it.
func (s *UserService) DeleteUser(id int64) error {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
