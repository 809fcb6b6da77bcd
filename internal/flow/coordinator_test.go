package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// stubStep is a scriptable step for coordinator tests.
type stubStep struct {
	id        string
	sensitive []string
	prepare   func(ctx context.Context, att *Attempt, rc RenderContext) error
	validate  func(ctx context.Context, att *Attempt, sub Submission) ([]FieldError, error)
	commit    func(ctx context.Context, att *Attempt, sub Submission) error
}

func (s *stubStep) ID() string { return s.id }

func (s *stubStep) Prepare(ctx context.Context, att *Attempt, rc RenderContext) error {
	if s.prepare != nil {
		return s.prepare(ctx, att, rc)
	}
	return nil
}

func (s *stubStep) Validate(ctx context.Context, att *Attempt, sub Submission) ([]FieldError, error) {
	if s.validate != nil {
		return s.validate(ctx, att, sub)
	}
	return nil, nil
}

func (s *stubStep) Commit(ctx context.Context, att *Attempt, sub Submission) error {
	if s.commit != nil {
		return s.commit(ctx, att, sub)
	}
	return nil
}

func (s *stubStep) Sensitive() []string { return s.sensitive }

type CoordinatorSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore(time.Hour)
}

func (s *CoordinatorSuite) newCoordinator(steps ...Step) *Coordinator {
	c, err := NewCoordinator(s.store, "registration", steps)
	s.Require().NoError(err)
	return c
}

func (s *CoordinatorSuite) begin(c *Coordinator) *Attempt {
	att := &Attempt{ID: "att-1", LoginHint: "hint@example.com", ClientID: "portal"}
	s.Require().NoError(c.Begin(s.ctx, att))
	return att
}

// TestLifecycle verifies attempt creation, reload and step positioning.
func (s *CoordinatorSuite) TestLifecycle() {
	c := s.newCoordinator(&stubStep{id: "one"}, &stubStep{id: "two"})

	s.Run("begin positions the attempt on the first step", func() {
		att := s.begin(c)

		current, err := c.Current(s.ctx, att)
		s.Require().NoError(err)
		s.Equal("one", current)
		s.Equal("one", c.FirstStep())
	})

	s.Run("load restores hint and client", func() {
		s.begin(c)

		att, err := c.Load(s.ctx, "att-1")
		s.Require().NoError(err)
		s.Equal("hint@example.com", att.LoginHint)
		s.Equal("portal", att.ClientID)
	})

	s.Run("load of an unknown attempt fails", func() {
		_, err := c.Load(s.ctx, "missing")
		s.Require().ErrorIs(err, ErrAttemptNotFound)
	})
}

// TestSubmitSequencing verifies step ordering rules.
func (s *CoordinatorSuite) TestSubmitSequencing() {
	c := s.newCoordinator(&stubStep{id: "one"}, &stubStep{id: "two"})

	s.Run("rejects unknown steps", func() {
		att := s.begin(c)
		_, err := c.Submit(s.ctx, att, "bogus", Submission{})
		s.Require().ErrorIs(err, ErrUnknownStep)
	})

	s.Run("rejects steps submitted out of order", func() {
		att := s.begin(c)
		_, err := c.Submit(s.ctx, att, "two", Submission{})
		s.Require().ErrorIs(err, ErrStepOutOfOrder)
	})

	s.Run("advances after a successful commit", func() {
		att := s.begin(c)

		result, err := c.Submit(s.ctx, att, "one", Submission{})
		s.Require().NoError(err)
		s.False(result.Failed())
		s.Equal("two", result.Next)

		current, err := c.Current(s.ctx, att)
		s.Require().NoError(err)
		s.Equal("two", current)
	})
}

// TestSubmitFailures verifies field errors re-render without committing and
// sensitive fields never echo back.
func (s *CoordinatorSuite) TestSubmitFailures() {
	committed := false
	failing := &stubStep{
		id:        "one",
		sensitive: []string{"password"},
		validate: func(_ context.Context, _ *Attempt, _ Submission) ([]FieldError, error) {
			return []FieldError{{Field: "email", Message: "missingEmailMessage"}}, nil
		},
		commit: func(_ context.Context, _ *Attempt, _ Submission) error {
			committed = true
			return nil
		},
	}
	c := s.newCoordinator(failing, &stubStep{id: "two"})
	att := s.begin(c)

	result, err := c.Submit(s.ctx, att, "one", Submission{
		"email":    {""},
		"password": {"hunter42"},
	})
	s.Require().NoError(err)
	s.True(result.Failed())
	s.False(committed, "commit must not run on validation failure")
	s.NotContains(result.Echo, "password")
	s.Contains(result.Echo, "email")

	current, err := c.Current(s.ctx, att)
	s.Require().NoError(err)
	s.Equal("one", current, "failed validation must not advance the flow")
}

// TestFatalErrors verifies validator and commit errors abort the attempt.
func (s *CoordinatorSuite) TestFatalErrors() {
	s.Run("validator error is fatal", func() {
		boom := errors.New("store down")
		c := s.newCoordinator(&stubStep{
			id: "one",
			validate: func(_ context.Context, _ *Attempt, _ Submission) ([]FieldError, error) {
				return nil, boom
			},
		})
		att := s.begin(c)

		_, err := c.Submit(s.ctx, att, "one", Submission{})
		s.Require().ErrorIs(err, boom)
	})

	s.Run("commit error is fatal", func() {
		boom := errors.New("create failed")
		c := s.newCoordinator(&stubStep{
			id: "one",
			commit: func(_ context.Context, _ *Attempt, _ Submission) error {
				return boom
			},
		})
		att := s.begin(c)

		_, err := c.Submit(s.ctx, att, "one", Submission{})
		s.Require().ErrorIs(err, boom)
	})
}

// TestCompletion verifies the last step destroys the scratchpad and reports
// the bound account.
func (s *CoordinatorSuite) TestCompletion() {
	last := &stubStep{
		id: "final",
		commit: func(_ context.Context, att *Attempt, _ Submission) error {
			att.UserID = "user-42"
			return nil
		},
	}
	c := s.newCoordinator(&stubStep{id: "one"}, last)
	att := s.begin(c)

	_, err := c.Submit(s.ctx, att, "one", Submission{})
	s.Require().NoError(err)

	result, err := c.Submit(s.ctx, att, "final", Submission{})
	s.Require().NoError(err)
	s.True(result.Completed)
	s.Equal("user-42", result.UserID)

	_, err = c.Load(s.ctx, att.ID)
	s.Require().ErrorIs(err, ErrAttemptNotFound, "completed attempts must not be reloadable")
}

// TestPrepare verifies the render hook has no side effects on the store.
func (s *CoordinatorSuite) TestPrepare() {
	step := &stubStep{
		id: "one",
		prepare: func(_ context.Context, att *Attempt, rc RenderContext) error {
			rc["email"] = att.LoginHint
			return nil
		},
	}
	c := s.newCoordinator(step, &stubStep{id: "two"})
	att := s.begin(c)

	for range 3 {
		rc, err := c.Prepare(s.ctx, att, "one")
		s.Require().NoError(err)
		s.Equal("hint@example.com", rc["email"])
	}

	current, err := c.Current(s.ctx, att)
	s.Require().NoError(err)
	s.Equal("one", current)
}
