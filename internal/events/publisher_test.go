package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type EventsSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func TestEventsSuite(t *testing.T) {
	suite.Run(t, new(EventsSuite))
}

func (s *EventsSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.Default()
}

// TestWorkerDrainsInbox verifies published events reach the sink.
func (s *EventsSuite) TestWorkerDrainsInbox() {
	publisher := NewChannelPublisher(8, s.logger)
	sink := NewMemorySink()
	worker := NewWorker(sink, publisher.Inbox(), s.logger)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	event := Event{
		ID:     "evt-1",
		Type:   TypeRegisterCompleted,
		Realm:  "main",
		UserID: "user-42",
		Email:  "jane@example.com",
		Time:   time.Now(),
	}
	s.Require().NoError(publisher.Publish(s.ctx, event))

	s.Eventually(func() bool {
		return len(sink.Events()) == 1
	}, time.Second, 10*time.Millisecond)
	s.Equal("user-42", sink.Events()[0].UserID)

	cancel()
	<-done
}

// TestPublishNeverBlocks verifies a full buffer drops instead of stalling the
// registration path.
func (s *EventsSuite) TestPublishNeverBlocks() {
	publisher := NewChannelPublisher(1, s.logger)

	// No worker is draining; the second publish must still return.
	s.Require().NoError(publisher.Publish(s.ctx, Event{ID: "evt-1"}))

	finished := make(chan error, 1)
	go func() {
		finished <- publisher.Publish(s.ctx, Event{ID: "evt-2"})
	}()

	select {
	case err := <-finished:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("publish blocked on a full buffer")
	}
}
