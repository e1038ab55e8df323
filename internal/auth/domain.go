package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	NameAr       string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
