package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an API user
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	SecretHash string    `json:"-"` // Never serialize secret hash
	Name       string    `json:"name"`
	FirmName   *string   `json:"firm_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
