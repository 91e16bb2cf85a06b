package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleStudent  = "student"
	RoleEmployer = "employer"
)

var ErrUserExists = errors.New("username or email already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrForbidden = errors.New("access forbidden")
var ErrWeakPassword = errors.New("password does not meet the minimum policy")

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStudent || role == RoleEmployer
}

// User models an authenticated actor in the system. Admin users own exactly
// one Institution; student users own certificates issued to them.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	PhotoRef     string    `json:"photo_url,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
