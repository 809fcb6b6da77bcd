package flow

import (
	"context"

	"enroll/pkg/domainerrors"
)

var (
	// ErrAttemptNotFound signals an unknown or expired attempt ID.
	ErrAttemptNotFound = domainerrors.New(domainerrors.CodeNotFound, "registration attempt not found")
	// ErrUnknownStep signals a step ID outside the configured flow.
	ErrUnknownStep = domainerrors.New(domainerrors.CodeBadRequest, "unknown registration step")
	// ErrStepOutOfOrder signals a submission for a step other than the
	// attempt's current one.
	ErrStepOutOfOrder = domainerrors.New(domainerrors.CodeBadRequest, "step submitted out of order")
)

// Store is the ephemeral per-attempt scratchpad. Entries live only for the
// duration of one registration attempt and are destroyed when it completes,
// aborts or expires. Implementations must scope keys per attempt so
// concurrent attempts never observe each other's notes.
type Store interface {
	// Put writes a note. The first Put for an attempt starts its lifetime.
	Put(ctx context.Context, attemptID, key, value string) error
	// Get reads a note; absent notes return "" with no error.
	Get(ctx context.Context, attemptID, key string) (string, error)
	// Remove deletes a single note.
	Remove(ctx context.Context, attemptID, key string) error
	// Destroy drops every note for the attempt.
	Destroy(ctx context.Context, attemptID string) error
}
