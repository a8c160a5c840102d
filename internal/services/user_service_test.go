package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/avelar/taskhive-be/internal/database"
	"github.com/avelar/taskhive-be/internal/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	user, err := s.Register("alice@example.com", "ab", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected a user id to be assigned")
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected a creation timestamp")
	}

	got, err := s.Authenticate("alice@example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user id %d, got %d", user.ID, got.ID)
	}
	if got.PasswordHash != "" {
		t.Fatal("password hash must not leave the service")
	}
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	if _, err := s.Register("alice@example.com", "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, wrongPassword := s.Authenticate("alice@example.com", "nope00")
	_, unknownEmail := s.Authenticate("bob@example.com", "secret")

	if !errors.Is(wrongPassword, ErrAuthenticationFailed) {
		t.Fatalf("wrong password: expected ErrAuthenticationFailed, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, ErrAuthenticationFailed) {
		t.Fatalf("unknown email: expected ErrAuthenticationFailed, got %v", unknownEmail)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	longPassword := make([]byte, 73)
	for i := range longPassword {
		longPassword[i] = 'a'
	}

	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"username too short", "a", "secret", "username"},
		{"username too long", string(make([]byte, 51)), "secret", "username"},
		{"password too short", "alice", "12345", "password"},
		{"password too long", "alice", string(longPassword), "password"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Register("v@example.com", tc.username, tc.password)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}

	// Boundary values succeed.
	if _, err := s.Register("ok@example.com", "ab", "123456"); err != nil {
		t.Fatalf("register at boundaries: %v", err)
	}
}

func TestRegisterUsernameCountsRunes(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	// Two runes, four bytes: valid.
	if _, err := s.Register("nu@example.com", "ñü", "secret"); err != nil {
		t.Fatalf("two-rune username: %v", err)
	}

	// One rune, two bytes: too short.
	_, err := s.Register("n@example.com", "ñ", "secret")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "username" {
		t.Fatalf("expected username ValidationError, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	if _, err := s.Register("alice@example.com", "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := s.Register("alice@example.com", "other", "secret")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUniqueConstraintMapsToDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db)

	if _, err := s.Register("alice@example.com", "alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A concurrent registration can slip past the pre-check; the storage
	// UNIQUE constraint is the backstop and must read as a duplicate.
	_, err := db.Exec(
		"INSERT INTO users(email, username, password_hash, created_at) VALUES(?, ?, ?, ?)",
		"alice@example.com", "racer", "hash", 0,
	)
	if err == nil {
		t.Fatal("expected the unique constraint to reject the insert")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("expected a unique violation, got %v", err)
	}
}

func TestDeleteUserCascadesToTasks(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	tasks := NewTaskService(db)

	user, err := users.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := tasks.CreateTask(models.Task{Title: "one"}, user.ID); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := tasks.CreateTask(models.Task{Title: "two"}, user.ID); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := users.DeleteUser(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tasks WHERE user_id = ?", user.ID).Scan(&count); err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade to remove tasks, %d remain", count)
	}

	if err := users.DeleteUser(user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting a gone user, got %v", err)
	}
}

func TestDeleteUserCascadesOnEveryPooledConnection(t *testing.T) {
	// Go through database.New with a real file and an unrestricted pool:
	// foreign-key enforcement must come from the DSN, not from a pragma run
	// on a single connection.
	db, err := database.New(filepath.Join(t.TempDir(), "taskhive.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := NewUserService(db)
	tasks := NewTaskService(db)

	user, err := users.Register("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := tasks.CreateTask(models.Task{Title: "orphan candidate"}, user.ID); err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Pin the connection that did the work above so the delete is forced
	// onto a freshly opened one.
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("pin connection: %v", err)
	}
	defer conn.Close()

	if err := users.DeleteUser(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tasks WHERE user_id = ?", user.ID).Scan(&count); err != nil {
		t.Fatalf("count tasks: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade on a second pooled connection, %d orphan tasks remain", count)
	}
}
