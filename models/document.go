package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a submitted legal text
type Document struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
