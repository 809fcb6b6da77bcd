package register

import (
	"context"
	"errors"
	"strings"

	"enroll/internal/flow"
	"enroll/internal/profile"
)

// StepPersonalData is the second step's ID.
const StepPersonalData = "personal-data"

// PersonalDataStep collects names and role tags. Structural validation is
// delegated to the profile schema validator, which expects a full record, so
// the committed email is re-injected before validating.
type PersonalDataStep struct {
	notes     flow.Store
	validator profile.Validator
}

func NewPersonalDataStep(notes flow.Store, validator profile.Validator) *PersonalDataStep {
	return &PersonalDataStep{notes: notes, validator: validator}
}

func (s *PersonalDataStep) ID() string { return StepPersonalData }

// Prepare re-surfaces previously committed fields so a returning user sees
// what they already entered.
func (s *PersonalDataStep) Prepare(ctx context.Context, att *flow.Attempt, rc flow.RenderContext) error {
	for _, key := range []string{noteCivility, noteLastName, noteFirstName} {
		value, err := s.notes.Get(ctx, att.ID, key)
		if err != nil {
			return err
		}
		if value != "" {
			rc[key] = value
		}
	}
	csv, err := s.notes.Get(ctx, att.ID, noteProfile)
	if err != nil {
		return err
	}
	if csv != "" {
		rc[noteProfile] = splitProfile(csv)
	}
	return nil
}

func (s *PersonalDataStep) Validate(ctx context.Context, att *flow.Attempt, sub flow.Submission) ([]flow.FieldError, error) {
	email, err := s.notes.Get(ctx, att.ID, noteEmail)
	if err != nil {
		return nil, err
	}

	attrs := map[string][]string{
		"username":     {email},
		FieldEmail:     {email},
		FieldCivility:  sub.Values(FieldCivility),
		FieldLastName:  sub.Values(FieldLastName),
		FieldFirstName: sub.Values(FieldFirstName),
		FieldProfile:   sub.Values(FieldProfile),
	}
	return validateProfile(ctx, s.validator, attrs)
}

// Commit writes the personal fields into the scratchpad. The multi-valued
// profile list is serialized as one comma-joined note, order-preserving.
func (s *PersonalDataStep) Commit(ctx context.Context, att *flow.Attempt, sub flow.Submission) error {
	for key, field := range map[string]string{
		noteCivility:  FieldCivility,
		noteLastName:  FieldLastName,
		noteFirstName: FieldFirstName,
	} {
		if err := s.notes.Put(ctx, att.ID, key, strings.TrimSpace(sub.First(field))); err != nil {
			return err
		}
	}
	return s.notes.Put(ctx, att.ID, noteProfile, joinProfile(sub.Values(FieldProfile)))
}

func (s *PersonalDataStep) Sensitive() []string { return nil }

// validateProfile runs the schema validator and translates its aggregated
// error into field errors. Anything other than a validation outcome is fatal.
func validateProfile(ctx context.Context, v profile.Validator, attrs map[string][]string) ([]flow.FieldError, error) {
	err := v.Validate(ctx, profile.ContextRegistration, attrs)
	if err == nil {
		return nil, nil
	}
	var verr *profile.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	fieldErrors := make([]flow.FieldError, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		fieldErrors = append(fieldErrors, flow.FieldError{
			Field:   e.Attribute,
			Message: e.Message,
			Params:  e.Params,
		})
	}
	return fieldErrors, nil
}

// joinProfile serializes role tags into a single comma-joined value, dropping
// blanks but preserving order.
func joinProfile(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ",")
}

// splitProfile is the inverse of joinProfile.
func splitProfile(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
