package register

import (
	"context"
	"log/slog"

	"enroll/internal/captcha"
	"enroll/internal/flow"
	"enroll/internal/platform/metrics"
	"enroll/internal/profile"
)

// StepConsents is the final step's ID.
const StepConsents = "consents"

// ConsentsStep collects the institution code and consent checkboxes, guarded
// by the bot-check gate, and hands the completed draft to the finalizer.
type ConsentsStep struct {
	notes     flow.Store
	validator profile.Validator
	gate      captcha.Config
	verifier  captcha.Verifier
	finalizer *Finalizer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// ConsentsOption configures the consents step.
type ConsentsOption func(*ConsentsStep)

func WithConsentsLogger(logger *slog.Logger) ConsentsOption {
	return func(s *ConsentsStep) {
		s.logger = logger
	}
}

func WithConsentsMetrics(m *metrics.Metrics) ConsentsOption {
	return func(s *ConsentsStep) {
		s.metrics = m
	}
}

func NewConsentsStep(notes flow.Store, validator profile.Validator, gate captcha.Config, verifier captcha.Verifier, finalizer *Finalizer, opts ...ConsentsOption) *ConsentsStep {
	s := &ConsentsStep{
		notes:     notes,
		validator: validator,
		gate:      gate,
		verifier:  verifier,
		finalizer: finalizer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ConsentsStep) ID() string { return StepConsents }

// Prepare signals the renderer to include the challenge widget when the gate
// is active for this deployment.
func (s *ConsentsStep) Prepare(_ context.Context, _ *flow.Attempt, rc flow.RenderContext) error {
	if s.gate.Required() {
		rc["captchaRequired"] = true
		rc["captchaSiteKey"] = s.gate.SiteKey
	}
	return nil
}

// Validate runs the bot-check gate first. A missing token, a verifier error
// and a negative verdict all collapse into the same generic challenge error
// and short-circuit the rest of the step, so a bot learns nothing about
// which profile fields were acceptable.
func (s *ConsentsStep) Validate(ctx context.Context, att *flow.Attempt, sub flow.Submission) ([]flow.FieldError, error) {
	if s.gate.Required() {
		ok, err := s.verifier.Verify(ctx, sub.First(FieldCaptchaToken), att.RemoteIP)
		if err != nil {
			s.logger.WarnContext(ctx, "challenge verification errored",
				"attempt_id", att.ID,
				"error", err.Error(),
			)
			s.metrics.RecordCaptchaVerdict("error")
			return []flow.FieldError{{Message: msgChallengeFailed}}, nil
		}
		if !ok {
			s.metrics.RecordCaptchaVerdict("fail")
			return []flow.FieldError{{Message: msgChallengeFailed}}, nil
		}
		s.metrics.RecordCaptchaVerdict("pass")
	}

	attrs, err := s.draftAttributes(ctx, att)
	if err != nil {
		return nil, err
	}
	attrs[FieldUAI] = sub.Values(FieldUAI)
	return validateProfile(ctx, s.validator, attrs)
}

// Commit is the last commit of the flow: it materializes the account.
func (s *ConsentsStep) Commit(ctx context.Context, att *flow.Attempt, sub flow.Submission) error {
	return s.finalizer.Finalize(ctx, att, sub)
}

func (s *ConsentsStep) Sensitive() []string {
	return []string{FieldCaptchaToken}
}

// draftAttributes reconstructs the accumulated draft from the scratchpad for
// the final full-schema validation pass.
func (s *ConsentsStep) draftAttributes(ctx context.Context, att *flow.Attempt) (map[string][]string, error) {
	attrs := make(map[string][]string)
	for note, attr := range map[string]string{
		noteEmail:     FieldEmail,
		noteCivility:  FieldCivility,
		noteLastName:  FieldLastName,
		noteFirstName: FieldFirstName,
	} {
		value, err := s.notes.Get(ctx, att.ID, note)
		if err != nil {
			return nil, err
		}
		attrs[attr] = []string{value}
	}
	attrs["username"] = attrs[FieldEmail]

	csv, err := s.notes.Get(ctx, att.ID, noteProfile)
	if err != nil {
		return nil, err
	}
	attrs[FieldProfile] = splitProfile(csv)
	return attrs, nil
}
