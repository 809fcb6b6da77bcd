package register

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enroll/internal/captcha"
	"enroll/internal/flow"
	"enroll/internal/password"
	"enroll/internal/profile"
	"enroll/internal/user"
)

// RegistrationFlowSuite drives the full three-step flow through the
// coordinator, the way the HTTP layer does.
type RegistrationFlowSuite struct {
	suite.Suite
	ctx         context.Context
	notes       *flow.MemoryStore
	users       *user.MemoryStore
	coordinator *flow.Coordinator
}

func TestRegistrationFlowSuite(t *testing.T) {
	suite.Run(t, new(RegistrationFlowSuite))
}

func (s *RegistrationFlowSuite) SetupTest() {
	s.ctx = context.Background()
	s.notes = flow.NewMemoryStore(time.Hour)
	s.users = user.NewMemoryStore()

	validator := profile.NewSchemaValidator(profile.RegistrationSchema())
	finalizer := NewFinalizer(s.notes, s.users, user.NewHasher(4), "main")
	steps := []flow.Step{
		NewCredentialsStep(s.notes, s.users, password.Default(), testResetURL),
		NewPersonalDataStep(s.notes, validator),
		NewConsentsStep(s.notes, validator, captcha.Config{}, nil, finalizer),
	}

	coordinator, err := flow.NewCoordinator(s.notes, "registration", steps)
	s.Require().NoError(err)
	s.coordinator = coordinator
}

func (s *RegistrationFlowSuite) submitOK(att *flow.Attempt, stepID string, sub flow.Submission) *flow.Result {
	result, err := s.coordinator.Submit(s.ctx, att, stepID, sub)
	s.Require().NoError(err)
	s.Require().False(result.Failed(), "step %s: %v", stepID, result.FieldErrors)
	return result
}

func (s *RegistrationFlowSuite) runFlow(attemptID, email string) *flow.Result {
	att := &flow.Attempt{ID: attemptID}
	s.Require().NoError(s.coordinator.Begin(s.ctx, att))

	s.submitOK(att, StepCredentials, flow.Submission{
		FieldEmail:           {email},
		FieldEmailConfirm:    {email},
		FieldPassword:        {"s3curePwd1"},
		FieldPasswordConfirm: {"s3curePwd1"},
	})
	s.submitOK(att, StepPersonalData, flow.Submission{
		FieldCivility:  {"Mme"},
		FieldLastName:  {"Doe"},
		FieldFirstName: {"Jane"},
		FieldProfile:   {"Teacher", "Director"},
	})
	return s.submitOK(att, StepConsents, flow.Submission{
		FieldUAI:        {"0561234A"},
		FieldNewsletter: {"on"},
		FieldCGU:        {"on"},
	})
}

// TestHappyPath verifies the three steps in sequence produce exactly one
// fully configured account.
func (s *RegistrationFlowSuite) TestHappyPath() {
	result := s.runFlow("att-1", "jane@example.com")
	s.True(result.Completed)
	s.NotEmpty(result.UserID)

	created, err := s.users.GetByID(s.ctx, result.UserID)
	s.Require().NoError(err)
	s.True(created.Enabled)
	s.False(created.EmailVerified)
	s.Equal("jane@example.com", created.Email)
	s.Equal([]string{"Teacher", "Director"}, created.Attribute("profile"),
		"role tags survive the comma-joined round trip in order")

	s.Run("the scratchpad is destroyed on completion", func() {
		pwd, err := s.notes.Get(s.ctx, "att-1", "password")
		s.Require().NoError(err)
		s.Empty(pwd)
	})

	s.Run("a second flow with the same email fails at step 1", func() {
		att := &flow.Attempt{ID: "att-2"}
		s.Require().NoError(s.coordinator.Begin(s.ctx, att))

		result, err := s.coordinator.Submit(s.ctx, att, StepCredentials, flow.Submission{
			FieldEmail:           {"jane@example.com"},
			FieldEmailConfirm:    {"jane@example.com"},
			FieldPassword:        {"s3curePwd1"},
			FieldPasswordConfirm: {"s3curePwd1"},
		})
		s.Require().NoError(err)
		s.Require().True(result.Failed())
		s.Equal("emailExistsMessage", result.FieldErrors[0].Message)
		s.Equal([]string{testResetURL}, result.FieldErrors[0].Params)
	})
}

// TestValidationFailureKeepsStep verifies a failed step re-renders with the
// password scrubbed and no account side effects.
func (s *RegistrationFlowSuite) TestValidationFailureKeepsStep() {
	att := &flow.Attempt{ID: "att-1"}
	s.Require().NoError(s.coordinator.Begin(s.ctx, att))

	result, err := s.coordinator.Submit(s.ctx, att, StepCredentials, flow.Submission{
		FieldEmail:           {"jane@example.com"},
		FieldEmailConfirm:    {"typo@example.com"},
		FieldPassword:        {"s3curePwd1"},
		FieldPasswordConfirm: {"s3curePwd1"},
	})
	s.Require().NoError(err)
	s.True(result.Failed())
	s.NotContains(result.Echo, FieldPassword)
	s.NotContains(result.Echo, FieldPasswordConfirm)

	_, err = s.users.GetByEmail(s.ctx, "jane@example.com")
	s.Require().ErrorIs(err, user.ErrNotFound)

	current, err := s.coordinator.Current(s.ctx, att)
	s.Require().NoError(err)
	s.Equal(StepCredentials, current)
}

// TestIndependentAttempts verifies two parallel flows never observe each
// other's drafts.
func (s *RegistrationFlowSuite) TestIndependentAttempts() {
	first := s.runFlow("att-a", "a@example.com")
	second := s.runFlow("att-b", "b@example.com")

	s.NotEqual(first.UserID, second.UserID)

	a, err := s.users.GetByEmail(s.ctx, "a@example.com")
	s.Require().NoError(err)
	b, err := s.users.GetByEmail(s.ctx, "b@example.com")
	s.Require().NoError(err)
	s.Equal(first.UserID, a.ID)
	s.Equal(second.UserID, b.ID)
}
