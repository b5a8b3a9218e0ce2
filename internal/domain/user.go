package domain

import "time"

// User is an account on the optional auth surface. PasswordHash never leaves
// the service layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
