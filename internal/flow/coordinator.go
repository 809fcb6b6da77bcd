package flow

import (
	"context"
	"errors"
	"log/slog"

	"enroll/internal/platform/metrics"
)

// Reserved note keys the coordinator uses for its own bookkeeping. Steps own
// every other key.
const (
	noteFlowID    = "flow_id"
	noteStep      = "step"
	noteLoginHint = "login_hint"
	noteClientID  = "client_id"
)

// Step is one page/submission cycle of the flow. Implementations must be
// stateless: all cross-request state goes through the attempt store, which
// keeps steps safely re-entrant after validation failures.
type Step interface {
	ID() string
	// Prepare populates the render context before the step is displayed.
	Prepare(ctx context.Context, att *Attempt, rc RenderContext) error
	// Validate checks the submission. Field errors re-render the step; a
	// non-nil error is fatal for the attempt.
	Validate(ctx context.Context, att *Attempt, sub Submission) ([]FieldError, error)
	// Commit persists derived fields into the attempt store. Only called
	// after Validate returned no field errors.
	Commit(ctx context.Context, att *Attempt, sub Submission) error
	// Sensitive names submission fields that must never be echoed back.
	Sensitive() []string
}

// Coordinator sequences the registration steps. It holds no per-attempt
// state itself; everything lives in the attempt store.
type Coordinator struct {
	steps   []Step
	store   Store
	flowID  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator builds a coordinator over an ordered step list.
func NewCoordinator(store Store, flowID string, steps []Step, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	if len(steps) == 0 {
		return nil, errors.New("at least one step is required")
	}
	c := &Coordinator{
		steps:  steps,
		store:  store,
		flowID: flowID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FirstStep returns the ID of the flow's first step.
func (c *Coordinator) FirstStep() string {
	return c.steps[0].ID()
}

// Begin opens a new attempt: records the flow back-reference, the optional
// login hint and requesting client, and positions the attempt on the first
// step.
func (c *Coordinator) Begin(ctx context.Context, att *Attempt) error {
	if err := c.store.Put(ctx, att.ID, noteFlowID, c.flowID); err != nil {
		return err
	}
	if att.LoginHint != "" {
		if err := c.store.Put(ctx, att.ID, noteLoginHint, att.LoginHint); err != nil {
			return err
		}
	}
	if att.ClientID != "" {
		if err := c.store.Put(ctx, att.ID, noteClientID, att.ClientID); err != nil {
			return err
		}
	}
	return c.store.Put(ctx, att.ID, noteStep, c.steps[0].ID())
}

// Load rebuilds the attempt context for a subsequent request. Returns
// ErrAttemptNotFound for unknown or expired attempts.
func (c *Coordinator) Load(ctx context.Context, attemptID string) (*Attempt, error) {
	flowID, err := c.store.Get(ctx, attemptID, noteFlowID)
	if err != nil {
		return nil, err
	}
	if flowID == "" {
		return nil, ErrAttemptNotFound
	}
	att := &Attempt{ID: attemptID}
	if att.LoginHint, err = c.store.Get(ctx, attemptID, noteLoginHint); err != nil {
		return nil, err
	}
	if att.ClientID, err = c.store.Get(ctx, attemptID, noteClientID); err != nil {
		return nil, err
	}
	return att, nil
}

// Current returns the attempt's current step ID.
func (c *Coordinator) Current(ctx context.Context, att *Attempt) (string, error) {
	step, err := c.store.Get(ctx, att.ID, noteStep)
	if err != nil {
		return "", err
	}
	if step == "" {
		return "", ErrAttemptNotFound
	}
	return step, nil
}

// Prepare builds the render context for a step. Re-rendering the current
// step is always safe: Prepare has no side effects on the attempt store.
func (c *Coordinator) Prepare(ctx context.Context, att *Attempt, stepID string) (RenderContext, error) {
	step, err := c.checkedStep(ctx, att, stepID)
	if err != nil {
		return nil, err
	}
	rc := RenderContext{}
	if err := step.Prepare(ctx, att, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// Submit runs the validate/commit cycle for a step and advances the flow.
// Field errors return a re-render result with sensitive fields stripped and
// commit nothing. A fatal error aborts the attempt.
func (c *Coordinator) Submit(ctx context.Context, att *Attempt, stepID string, sub Submission) (*Result, error) {
	step, err := c.checkedStep(ctx, att, stepID)
	if err != nil {
		return nil, err
	}

	fieldErrors, err := step.Validate(ctx, att, sub)
	if err != nil {
		c.logger.ErrorContext(ctx, "registration step failed",
			"attempt_id", att.ID,
			"step", stepID,
			"error", err.Error(),
		)
		return nil, err
	}
	if len(fieldErrors) > 0 {
		c.metrics.RecordStepFailure(stepID)
		echo := sub.Clone()
		echo.Strip(step.Sensitive()...)
		return &Result{FieldErrors: fieldErrors, Echo: echo}, nil
	}

	if err := step.Commit(ctx, att, sub); err != nil {
		c.logger.ErrorContext(ctx, "registration step commit failed",
			"attempt_id", att.ID,
			"step", stepID,
			"error", err.Error(),
		)
		return nil, err
	}

	next := c.nextAfter(stepID)
	if next == "" {
		// Flow complete: the finalizer has bound the account, the
		// scratchpad (password included) must not outlive the attempt.
		if err := c.store.Destroy(ctx, att.ID); err != nil {
			c.logger.WarnContext(ctx, "attempt store destroy failed",
				"attempt_id", att.ID,
				"error", err.Error(),
			)
		}
		return &Result{Completed: true, UserID: att.UserID}, nil
	}

	if err := c.store.Put(ctx, att.ID, noteStep, next); err != nil {
		return nil, err
	}
	return &Result{Next: next}, nil
}

func (c *Coordinator) checkedStep(ctx context.Context, att *Attempt, stepID string) (Step, error) {
	step := c.stepByID(stepID)
	if step == nil {
		return nil, ErrUnknownStep
	}
	current, err := c.Current(ctx, att)
	if err != nil {
		return nil, err
	}
	if current != stepID {
		return nil, ErrStepOutOfOrder
	}
	return step, nil
}

func (c *Coordinator) stepByID(stepID string) Step {
	for _, s := range c.steps {
		if s.ID() == stepID {
			return s
		}
	}
	return nil
}

func (c *Coordinator) nextAfter(stepID string) string {
	for i, s := range c.steps {
		if s.ID() == stepID && i+1 < len(c.steps) {
			return c.steps[i+1].ID()
		}
	}
	return ""
}
