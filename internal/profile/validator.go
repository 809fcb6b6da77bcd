package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

// ValidationContext tags which attribute rules apply; the registration flow
// always validates under ContextRegistration.
type ValidationContext string

const ContextRegistration ValidationContext = "registration"

// Error is one attribute-level validation failure.
type Error struct {
	Attribute string
	Message   string
	Params    []string
}

// ValidationError aggregates every attribute failure from one validation
// pass. It is an expected outcome, translated into field errors by callers,
// never propagated raw.
type ValidationError struct {
	Errors []Error
}

func (e *ValidationError) Error() string {
	attrs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		attrs = append(attrs, err.Attribute)
	}
	return fmt.Sprintf("profile validation failed: %s", strings.Join(attrs, ", "))
}

// Validator checks a full attribute map against the realm's profile schema.
// The registration steps call it; the schema itself is realm configuration.
type Validator interface {
	Validate(ctx context.Context, vc ValidationContext, attrs map[string][]string) error
}

// AttributeSpec declares the rules for one profile attribute.
type AttributeSpec struct {
	Name            string
	Required        bool
	MultiValued     bool
	MaxLength       int
	RequiredMessage string
	// Check runs against each non-empty value; return a message key on
	// failure.
	Check func(value string) string
}

// SchemaValidator is the default attribute-schema validator.
type SchemaValidator struct {
	specs []AttributeSpec
}

func NewSchemaValidator(specs []AttributeSpec) *SchemaValidator {
	return &SchemaValidator{specs: specs}
}

// RegistrationSchema mirrors the attributes the registration flow collects.
// Email doubles as username, so both are required and format-checked.
func RegistrationSchema() []AttributeSpec {
	return []AttributeSpec{
		{
			Name:            "username",
			Required:        true,
			RequiredMessage: "missingUsernameMessage",
			MaxLength:       255,
		},
		{
			Name:            "email",
			Required:        true,
			RequiredMessage: "missingEmailMessage",
			MaxLength:       255,
			Check: func(v string) string {
				if !govalidator.IsEmail(v) {
					return "invalidEmailMessage"
				}
				return ""
			},
		},
		{
			Name:            "firstName",
			Required:        true,
			RequiredMessage: "missingFirstNameMessage",
			MaxLength:       255,
		},
		{
			Name:            "lastName",
			Required:        true,
			RequiredMessage: "missingLastNameMessage",
			MaxLength:       255,
		},
		{Name: "civility", MaxLength: 32},
		{Name: "profile", MultiValued: true, MaxLength: 64},
		{Name: "uai", MaxLength: 32},
	}
}

func (v *SchemaValidator) Validate(_ context.Context, _ ValidationContext, attrs map[string][]string) error {
	var errs []Error
	for _, spec := range v.specs {
		values := nonBlank(attrs[spec.Name])

		if len(values) == 0 {
			if spec.Required {
				errs = append(errs, Error{Attribute: spec.Name, Message: spec.RequiredMessage})
			}
			continue
		}
		if !spec.MultiValued && len(values) > 1 {
			errs = append(errs, Error{Attribute: spec.Name, Message: "invalidAttributeValueMessage"})
			continue
		}
		for _, value := range values {
			if spec.MaxLength > 0 && len(value) > spec.MaxLength {
				errs = append(errs, Error{
					Attribute: spec.Name,
					Message:   "invalidAttributeLengthMessage",
					Params:    []string{fmt.Sprintf("%d", spec.MaxLength)},
				})
				break
			}
			if spec.Check != nil {
				if msg := spec.Check(value); msg != "" {
					errs = append(errs, Error{Attribute: spec.Name, Message: msg})
					break
				}
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
