// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"travel_leads_backend/platform/apperr"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance.
// Domain-specific validation rules can be registered using RegisterValidation.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
// Failures come back as an apperr validation error listing each field.
func (val *Validator) Struct(s interface{}) error {
	return toAppErr(val.v.Struct(s))
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return toAppErr(val.v.Var(field, tag))
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// FieldError describes a single rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func toAppErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, "invalid input", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		names = append(names, fe.Field())
	}
	msg := fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
	return apperr.Wrap(apperr.KindValidation, msg, err).WithDetails(fields)
}
