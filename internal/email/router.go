package email

import (
	"context"
	"errors"
	"log/slog"

	"enroll/internal/platform/metrics"
	"enroll/pkg/domainerrors"
)

// Channel labels used for logs and metrics.
const (
	ChannelPrimary   = "primary"
	ChannelSecondary = "secondary"
)

// Router decides, per outbound message, whether the primary transactional
// API or the secondary local relay carries it, and recovers from primary
// failure by falling back unconditionally. Only dual failure reaches the
// caller.
type Router struct {
	primary   Sender
	secondary Sender
	// theme gates the primary channel for client-scoped sends: only
	// clients carrying this login theme use the API.
	theme   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter builds the delivery router. primary may be nil when no API key
// is configured; every message then goes through the relay.
func NewRouter(primary, secondary Sender, theme string, opts ...RouterOption) (*Router, error) {
	if secondary == nil {
		return nil, errors.New("secondary sender is required")
	}
	r := &Router{
		primary:   primary,
		secondary: secondary,
		theme:     theme,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Send routes a message on behalf of a client. The primary channel is
// attempted only when the client's login theme matches the configured theme
// tag; otherwise the relay carries the message directly.
func (r *Router) Send(ctx context.Context, client ClientContext, msg Message) error {
	usePrimary := r.primary != nil && r.theme != "" && client.LoginTheme == r.theme
	return r.deliver(ctx, usePrimary, msg)
}

// SendNotification routes a template-triggered notification (password reset,
// email verification). These always prefer the primary channel and are keyed
// only by content, not by client configuration.
func (r *Router) SendNotification(ctx context.Context, msg Message) error {
	return r.deliver(ctx, r.primary != nil, msg)
}

func (r *Router) deliver(ctx context.Context, usePrimary bool, msg Message) error {
	if usePrimary {
		err := r.primary.Send(ctx, msg)
		if err == nil {
			r.metrics.RecordEmailDelivery(ChannelPrimary, "ok")
			return nil
		}
		// Fallback is unconditional: the primary error must not reach
		// the caller when the relay succeeds.
		r.metrics.RecordEmailDelivery(ChannelPrimary, "error")
		r.logger.ErrorContext(ctx, "primary email delivery failed, falling back to relay",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err.Error(),
		)
	}

	if err := r.secondary.Send(ctx, msg); err != nil {
		r.metrics.RecordEmailDelivery(ChannelSecondary, "error")
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "email delivery failed on both channels")
	}
	r.metrics.RecordEmailDelivery(ChannelSecondary, "ok")
	return nil
}
