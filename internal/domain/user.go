package domain

import (
	"time"
)

// User represents a registered user in the system.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Avatar       ImageAsset `json:"avatar"`

	// Password reset state. The token is stored as a sha256 hex digest and
	// never serialized.
	ResetPasswordToken     string     `json:"-"`
	ResetPasswordExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
