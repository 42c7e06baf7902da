package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest sends a notification to one user.
type CreateRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// BroadcastRequest sends a notification to every active user, optionally
// narrowed to one role.
type BroadcastRequest struct {
	Role    string `json:"role,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
