package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Validation errors.
var (
	// ErrValidation indicates a validation failure occurred.
	ErrValidation = errors.New("validation failed")

	// ErrBinding indicates the JSON body could not be decoded.
	ErrBinding = errors.New("binding failed")
)

// EventLevels are the severities an event may be logged at, lowest first.
var EventLevels = []string{"debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"}

// Channels are the notification channels a request may name.
var Channels = []string{"mail", "telegram"}

// providerID matches the ids providers are registered under.
var providerID = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in errors are taken
// from json tags, and the level, channel and provider_id tags are registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonName)

		_ = validate.RegisterValidation("notempty", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("level", func(fl validator.FieldLevel) bool {
			return slices.Contains(EventLevels, strings.ToLower(fl.Field().String()))
		})
		_ = validate.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
			return slices.Contains(Channels, fl.Field().String())
		})
		_ = validate.RegisterValidation("provider_id", func(fl validator.FieldLevel) bool {
			return providerID.MatchString(fl.Field().String())
		})
	})

	return validate
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// Validate checks the struct tags of v. Failures wrap ErrValidation.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failing field, as named in JSON, to a message.
// Slice elements are keyed with their index, e.g. "only[0]".
func ValidationErrors(err error) map[string]string {
	fieldErrors := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			fieldErrors[fe.Field()] = validationMessage(fe)
		}
	}

	return fieldErrors
}

// IsValidationError reports whether err carries field validation failures.
func IsValidationError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.As(err, &validationErrs)
}

func validationMessage(fe validator.FieldError) string {
	switch tag := fe.Tag(); tag {
	case "required":
		return "this field is required"
	case "notempty":
		return "must not be empty"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "level":
		return "must be one of: " + strings.Join(EventLevels, " ")
	case "channel":
		return "must be one of: " + strings.Join(Channels, " ")
	case "provider_id":
		return "must be a provider id (lowercase letters, digits and underscores)"
	case "min", "max":
		return minMaxMessage(tag, fe.Param(), fe.Type().Kind())
	default:
		return "failed validation: " + tag
	}
}

// minMaxMessage counts characters for strings and elements for slices.
func minMaxMessage(tag, param string, kind reflect.Kind) string {
	bound := "at least "
	if tag == "max" {
		bound = "at most "
	}

	switch kind {
	case reflect.String:
		return "must be " + bound + param + " characters"
	case reflect.Slice, reflect.Map:
		return "must have " + bound + param + " items"
	default:
		return "must be " + bound + param
	}
}
