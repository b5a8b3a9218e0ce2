package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"media-bucket/internal/repository/sqlite"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	if err := users.Init(context.Background()); err != nil {
		t.Fatalf("init users: %v", err)
	}
	return NewUserService(users, "letmein-secret")
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "correct horse", "letmein-secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("returned user must not carry the password hash")
	}

	authed, err := svc.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Errorf("authenticated id = %d, expected %d", authed.ID, user.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, expected ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, expected ErrInvalidCredentials", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "correct horse", "wrong-secret"); !errors.Is(err, ErrInvalidRegistrationPassword) {
		t.Errorf("wrong secret error = %v, expected ErrInvalidRegistrationPassword", err)
	}
	if _, err := svc.Register(ctx, "alice", "short", "letmein-secret"); err == nil {
		t.Error("short password should be rejected")
	}
	if _, err := svc.Register(ctx, "", "correct horse", "letmein-secret"); err == nil {
		t.Error("blank username should be rejected")
	}

	if _, err := svc.Register(ctx, "alice", "correct horse", "letmein-secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "correct horse", "letmein-secret"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate username error = %v, expected ErrUserAlreadyExists", err)
	}
}
