// Package validation checks request inputs against declarative struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"skillswap/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	skillNameRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-/+#.]+$`)
	phoneRegex     = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("skillname", func(fl validator.FieldLevel) bool {
		return ValidSkillName(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	return v
}

// ValidSkillName reports whether name is 2..50 characters from the allowed set once
// surrounding and repeated whitespace is removed.
func ValidSkillName(name string) bool {
	cleaned := models.CleanSkillName(name)
	n := utf8.RuneCountInString(cleaned)
	return n >= 2 && n <= 50 && skillNameRegex.MatchString(cleaned)
}

// Struct validates s and returns a VALIDATION_ERROR describing the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return models.NewValidationError(message(fieldErrs[0]))
	}
	return models.NewValidationError(err.Error())
}

// Var validates a single value against tag, naming it field in the error.
func Var(field string, value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError(describe(field, fe.Tag(), fe.Param(), fe.Kind()))
	}
	return models.NewValidationError(err.Error())
}

func message(fe validator.FieldError) string {
	return describe(fe.Field(), fe.Tag(), fe.Param(), fe.Kind())
}

func describe(field, tag, param string, kind reflect.Kind) string {
	unit := "characters"
	if kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map {
		unit = "items"
	}

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s %s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s %s", field, param, unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", field, param)
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, param)
	case "skillname":
		return fmt.Sprintf("%s must be 2-50 characters of letters, numbers, spaces or - / + # .", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
