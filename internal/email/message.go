package email

import "context"

// Message is one outbound email. No persistence: fire-and-forget per call,
// apart from the router's single primary-to-secondary fallback.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// ClientContext identifies the application on whose behalf a notification is
// sent; its login theme drives channel selection.
type ClientContext struct {
	ClientID   string
	LoginTheme string
}

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
