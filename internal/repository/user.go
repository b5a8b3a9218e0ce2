package repository

import (
	"context"
	"errors"

	"media-bucket/internal/domain"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository stores the accounts behind the optional auth surface.
type UserRepository interface {
	Init(ctx context.Context) error
	// Create inserts the user and returns its id. ErrUserExists is returned
	// on a username collision.
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
