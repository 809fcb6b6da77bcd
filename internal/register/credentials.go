// Package register implements the three data-collection steps of the
// self-registration flow and the finalizer that materializes the account.
package register

import (
	"context"
	"errors"
	"strings"

	"github.com/asaskevich/govalidator"

	"enroll/internal/flow"
	"enroll/internal/password"
	"enroll/internal/user"
)

// Note keys for draft fields committed across steps.
const (
	noteEmail     = "email"
	notePassword  = "password"
	noteCivility  = "civility"
	noteLastName  = "lastName"
	noteFirstName = "firstName"
	noteProfile   = "profile"
)

// StepCredentials is the first step's ID.
const StepCredentials = "credentials"

// CredentialsStep collects and validates the email/password pair. The email
// doubles as username, so uniqueness is checked here, before any personal
// data is asked for.
type CredentialsStep struct {
	notes    flow.Store
	users    user.Store
	policy   password.Policy
	resetURL string
}

// NewCredentialsStep wires the first step. resetURL is the realm's public
// password-reset entry point, handed out when the address is already taken.
func NewCredentialsStep(notes flow.Store, users user.Store, policy password.Policy, resetURL string) *CredentialsStep {
	return &CredentialsStep{notes: notes, users: users, policy: policy, resetURL: resetURL}
}

func (s *CredentialsStep) ID() string { return StepCredentials }

// Prepare pre-fills the email field from an upstream login hint. The hint
// never overrides a value the user already typed: re-renders after a failed
// submission echo the submission, not the render context.
func (s *CredentialsStep) Prepare(_ context.Context, att *flow.Attempt, rc flow.RenderContext) error {
	if att.LoginHint != "" {
		rc[FieldEmail] = att.LoginHint
	}
	return nil
}

// Validate collects every violation instead of stopping at the first, so the
// user can fix the whole form in one pass.
func (s *CredentialsStep) Validate(ctx context.Context, _ *flow.Attempt, sub flow.Submission) ([]flow.FieldError, error) {
	var fieldErrors []flow.FieldError

	email := strings.TrimSpace(sub.First(FieldEmail))
	switch {
	case email == "":
		fieldErrors = append(fieldErrors, flow.FieldError{Field: FieldEmail, Message: msgMissingEmail})
	case !govalidator.IsEmail(email):
		fieldErrors = append(fieldErrors, flow.FieldError{Field: FieldEmail, Message: msgInvalidEmail})
	default:
		_, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			fieldErrors = append(fieldErrors, flow.FieldError{
				Field:   FieldEmail,
				Message: msgEmailExists,
				Params:  []string{s.resetURL},
			})
		case !errors.Is(err, user.ErrNotFound):
			return nil, err
		}
	}
	if email != "" && email != strings.TrimSpace(sub.First(FieldEmailConfirm)) {
		fieldErrors = append(fieldErrors, flow.FieldError{Field: FieldEmailConfirm, Message: msgInvalidEmailConfirm})
	}

	pass := sub.First(FieldPassword)
	if pass == "" {
		fieldErrors = append(fieldErrors, flow.FieldError{Field: FieldPassword, Message: msgMissingPassword})
	} else if violation := s.policy.Validate(email, pass); violation != nil {
		fieldErrors = append(fieldErrors, flow.FieldError{
			Field:   FieldPassword,
			Message: violation.Message,
			Params:  violation.Params,
		})
	}
	if pass != "" && pass != sub.First(FieldPasswordConfirm) {
		fieldErrors = append(fieldErrors, flow.FieldError{Field: FieldPasswordConfirm, Message: msgInvalidPasswordConfirm})
	}

	return fieldErrors, nil
}

// Commit stores the validated pair in the attempt scratchpad. The password
// lives there only until the finalizer hashes it.
func (s *CredentialsStep) Commit(ctx context.Context, att *flow.Attempt, sub flow.Submission) error {
	if err := s.notes.Put(ctx, att.ID, noteEmail, strings.TrimSpace(sub.First(FieldEmail))); err != nil {
		return err
	}
	return s.notes.Put(ctx, att.ID, notePassword, sub.First(FieldPassword))
}

func (s *CredentialsStep) Sensitive() []string {
	return []string{FieldPassword, FieldPasswordConfirm}
}
