package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate names fields by their koanf key, so messages quote the same path
// a YAML file or APP_ variable would use.
var validate = newValidator()

// channels are the notification channels a route may name.
var channels = []string{"mail", "telegram"}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "" {
			return fld.Name
		}

		return name
	})

	return v
}

// Validate validates the configuration and returns an error if invalid.
// Validation fails fast - the service should not start with invalid config.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		for _, e := range validationErrors {
			errs = append(errs, formatFieldError(e))
		}
	}

	errs = append(errs, c.Contextify.Notifications.problems()...)

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

// problems reports the cross-field rules of notification routing, which only
// apply while notifications are enabled.
func (n NotificationsConfig) problems() []string {
	if !n.Enabled {
		return nil
	}

	var errs []string

	for _, kind := range slices.Sorted(maps.Keys(n.List)) {
		for _, channel := range slices.Sorted(maps.Keys(n.List[kind])) {
			if !slices.Contains(channels, channel) {
				errs = append(errs, fmt.Sprintf("contextify.notifications.list.%s.%s must be one of: %s",
					kind, channel, strings.Join(channels, " ")))
			}
		}
	}

	if n.Routes("mail") {
		if len(n.MailAddresses) == 0 {
			errs = append(errs, "contextify.notifications.mail_addresses is required when mail is routed")
		}
		if n.Mail.Host == "" {
			errs = append(errs, "contextify.notifications.mail.host is required when mail is routed")
		}
	}

	if n.Routes("telegram") {
		if n.TelegramChatID == "" {
			errs = append(errs, "contextify.notifications.telegram_chat_id is required when telegram is routed")
		}
		if n.Telegram.Token == "" {
			errs = append(errs, "contextify.notifications.telegram.token is required when telegram is routed")
		}
	}

	return errs
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, toKey(e.Param()))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email address"
	case "hostname_rfc1123|ip":
		return field + " must be a hostname or IP address"
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

// formatFieldPath drops the root struct from a namespace such as
// "Config.client.retry.max_attempts".
func formatFieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return path
}

// toKey renders a required_if parameter ("Enabled true") as "enabled is true".
func toKey(param string) string {
	field, value, _ := strings.Cut(param, " ")
	return strings.ToLower(field) + " is " + value
}
