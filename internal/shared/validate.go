package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidateStruct runs the struct-tag rules on v and reports failures keyed by
// the fields' form names.
func ValidateStruct(v any) FieldErrors {
	errs := FieldErrors{}
	err := validate.Struct(v)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("general", "invalid input")
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), fe.Field()+" "+validationMessage(fe))
	}
	return errs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "numeric":
		return "must be a number"
	}
	return "is invalid"
}

// Clean trims surrounding whitespace and caps the length in runes.
func Clean(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 {
		if r := []rune(trimmed); len(r) > maxLen {
			return string(r[:maxLen])
		}
	}
	return trimmed
}
