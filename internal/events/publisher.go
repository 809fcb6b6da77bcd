package events

import (
	"context"
	"log/slog"
)

// ChannelPublisher buffers events in memory and hands them to a worker.
// Publishing never blocks the registration path: when the buffer is full the
// event is dropped and logged.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "event buffer full, dropping event",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}
}

// Inbox exposes the buffered channel to the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Worker consumes published events and persists them to a sink. It keeps
// background processing testable without wiring queue implementations into
// the flow itself.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled. Sink failures are
// logged, not fatal: losing an event must not take the gateway down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Write(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "event sink write failed",
					"event_type", event.Type,
					"event_id", event.ID,
					"error", err.Error(),
				)
			}
		}
	}
}
