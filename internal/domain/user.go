package domain

import (
	"errors"
	"time"
)

// User is an identity that owns exactly one account. User.ID equals the account ID.
type User struct {
	CreatedAt      time.Time
	ID             string
	Username       string
	HashedPassword string
}

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
)
