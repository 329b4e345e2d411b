package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	Email            string     `json:"email" db:"email"`
	HashedPassword   string     `json:"-" db:"password_hash"`
	ResetToken       *string    `json:"-" db:"reset_token"`
	ResetTokenExpiry *time.Time `json:"-" db:"reset_token_expiry"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}
