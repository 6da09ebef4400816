package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	dErrors "vcregistry/pkg/domain-errors"
	s "vcregistry/pkg/string"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// maxrunes counts characters rather than bytes so Vietnamese names are
	// not penalized for their UTF-8 width.
	_ = v.RegisterValidation("maxrunes", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscanf(fl.Param(), "%d", &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(fl.Field().String()) <= limit
	})
	return v
}

// Validate validates a struct using the default validator and returns a domain error
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	fieldName := fe.Field()
	if fieldName == "" {
		fieldName = fe.StructField()
	}
	field := s.ToSnakeCase(fieldName)

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max", "maxrunes":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "printascii":
		return fmt.Sprintf("%s must contain printable ASCII only", field)
	default:
		if field == "" {
			return "invalid request body"
		}
		return fmt.Sprintf("%s is invalid", field)
	}
}
