package events

import "time"

const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserRemoved = "user.removed"
)

// UserEvent is the JSON payload put on the RabbitMQ queue for user lifecycle changes.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	Firstname  string    `json:"firstname,omitempty"`
	Lastname   string    `json:"lastname,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
