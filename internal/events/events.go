package events

import (
	"context"
	"time"
)

// Event types emitted by the registration flow.
const (
	TypeRegisterCompleted = "register.completed"
)

// Event records something that happened to an identity. Events never carry
// credentials or challenge tokens.
type Event struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Realm    string            `json:"realm"`
	UserID   string            `json:"user_id"`
	Email    string            `json:"email"`
	ClientID string            `json:"client_id,omitempty"`
	Time     time.Time         `json:"time"`
	Details  map[string]string `json:"details,omitempty"`
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Sink is where the worker ultimately writes events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}
