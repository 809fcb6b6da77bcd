package register

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"enroll/internal/events"
	"enroll/internal/flow"
	"enroll/internal/platform/metrics"
	"enroll/internal/user"
	"enroll/pkg/domainerrors"
)

// Finalizer assembles the completed draft into a user account. Creation is a
// single atomic store write: either the full record exists afterwards, or
// nothing does, so a failure never leaves a half-configured enabled account.
type Finalizer struct {
	notes   flow.Store
	users   user.Store
	hasher  *user.Hasher
	realm   string
	events  events.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// FinalizerOption configures a Finalizer.
type FinalizerOption func(*Finalizer)

func WithFinalizerLogger(logger *slog.Logger) FinalizerOption {
	return func(f *Finalizer) {
		f.logger = logger
	}
}

func WithFinalizerMetrics(m *metrics.Metrics) FinalizerOption {
	return func(f *Finalizer) {
		f.metrics = m
	}
}

func WithFinalizerEvents(p events.Publisher) FinalizerOption {
	return func(f *Finalizer) {
		f.events = p
	}
}

func WithFinalizerClock(now func() time.Time) FinalizerOption {
	return func(f *Finalizer) {
		f.now = now
	}
}

func NewFinalizer(notes flow.Store, users user.Store, hasher *user.Hasher, realm string, opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{
		notes:  notes,
		users:  users,
		hasher: hasher,
		realm:  realm,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize materializes the account from the accumulated draft plus the last
// step's own fields, binds it to the attempt, and emits a completion event.
// Any storage failure is fatal for the attempt; a concurrent registration of
// the same email surfaces as an already-exists error, not a generic one.
func (f *Finalizer) Finalize(ctx context.Context, att *flow.Attempt, sub flow.Submission) error {
	draft, err := f.readDraft(ctx, att.ID)
	if err != nil {
		return err
	}

	hash, err := f.hasher.Hash(draft[notePassword])
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "hash credential")
	}

	u := &user.User{
		ID:             uuid.NewString(),
		Username:       draft[noteEmail],
		Email:          draft[noteEmail],
		Enabled:        true,
		EmailVerified:  false,
		FirstName:      draft[noteFirstName],
		LastName:       draft[noteLastName],
		CredentialHash: hash,
		CreatedAt:      f.now(),
	}
	if draft[noteCivility] != "" {
		u.SetSingleAttribute(FieldCivility, draft[noteCivility])
	}
	if tags := splitProfile(draft[noteProfile]); len(tags) > 0 {
		u.SetAttribute(FieldProfile, tags)
	}
	if uai := sub.First(FieldUAI); uai != "" {
		u.SetSingleAttribute(FieldUAI, uai)
	}
	u.SetSingleAttribute(FieldNewsletter, checkbox(sub, FieldNewsletter))
	u.SetSingleAttribute(FieldCGU, checkbox(sub, FieldCGU))

	if err := f.users.Create(ctx, u); err != nil {
		return err
	}

	// Bind the fresh account to the attempt as its principal.
	att.UserID = u.ID

	f.metrics.RecordRegistration()
	f.publishCompleted(ctx, att, u)
	return nil
}

func (f *Finalizer) readDraft(ctx context.Context, attemptID string) (map[string]string, error) {
	draft := make(map[string]string)
	for _, key := range []string{noteEmail, notePassword, noteCivility, noteLastName, noteFirstName, noteProfile} {
		value, err := f.notes.Get(ctx, attemptID, key)
		if err != nil {
			return nil, err
		}
		draft[key] = value
	}
	return draft, nil
}

// publishCompleted emits the success event. The account already exists at
// this point, so a publish failure is logged, never propagated.
func (f *Finalizer) publishCompleted(ctx context.Context, att *flow.Attempt, u *user.User) {
	if f.events == nil {
		return
	}
	event := events.Event{
		ID:       uuid.NewString(),
		Type:     events.TypeRegisterCompleted,
		Realm:    f.realm,
		UserID:   u.ID,
		Email:    u.Email,
		ClientID: att.ClientID,
		Time:     f.now(),
	}
	if err := f.events.Publish(ctx, event); err != nil {
		f.logger.ErrorContext(ctx, "failed to publish registration event",
			"user_id", u.ID,
			"error", err.Error(),
		)
	}
}

// checkbox maps checkbox presence to the stored string flag.
func checkbox(sub flow.Submission, field string) string {
	if sub.First(field) != "" {
		return "true"
	}
	return "false"
}
