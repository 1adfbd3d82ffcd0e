package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/transcriber/errors"
)

// FieldError is a validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects failures for values that do not come from a bound
// struct: headers, path and query parameters. Checks chain:
//
//	err := validation.New().Required("Client-Id", id).MaxLength("Client-Id", id, 64).Validate()
type Validator struct {
	failed []FieldError
}

func New() *Validator { return &Validator{} }

func (v *Validator) check(ok bool, field, message string) *Validator {
	if !ok {
		v.failed = append(v.failed, FieldError{Field: field, Message: message})
	}
	return v
}

// Required fails on an empty or blank value.
func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength counts bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	return v.check(len(value) <= maxLen, field, fmt.Sprintf("must be at most %d characters", maxLen))
}

// OneOf accepts an empty value.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.check(value == "" || slices.Contains(allowed, value), field, "must be one of: "+strings.Join(allowed, ", "))
}

// Validate returns nil or an INVALID_INPUT AppError listing every failure.
func (v *Validator) Validate() error {
	if len(v.failed) == 0 {
		return nil
	}
	return invalid(v.failed)
}

// invalid joins the failures into the message and keeps them as the
// "fields" detail for clients.
func invalid(fields []FieldError) *errors.AppError {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Field + ": " + f.Message)
	}
	return errors.Validation(b.String()).WithDetail("fields", fields)
}
