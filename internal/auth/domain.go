// Package auth signs shop staff in and out and guards the pages behind a
// session login.
package auth

import "time"

// User represents a staff account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,max=72"`
}
