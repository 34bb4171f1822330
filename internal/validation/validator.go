// Package validation checks request bodies before they reach a service.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "freshcart/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the app's custom rules and
// turns failures into a ValidationError.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates s and returns a ValidationError describing the first
// failing field, with every failure in Errors.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Internal(err)
	}

	out := &ValidationError{Errors: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg := message(fe)
		if out.First == "" {
			out.First = msg
		}
		out.Errors[fe.Field()] = msg
	}
	return out
}

// ValidationError lists field messages. It converts to an AppError for
// the HTTP layer.
type ValidationError struct {
	First  string
	Errors map[string]string
}

func (e *ValidationError) Error() string { return e.First }

func (e *ValidationError) AppError() *apperrors.AppError {
	return apperrors.Validation("VALIDATION_FAILED", e.First)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s or %s is required", field, lowerFirst(fe.Param()))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "strongpassword":
		return fmt.Sprintf("%s must be at least %d characters and contain upper case, lower case and a digit", field, MinPasswordLength)
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid coordinate", field)
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not be more than %s characters long", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "alphanum":
		return fmt.Sprintf("%s must contain letters and digits only", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
