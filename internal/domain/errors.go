// Package domain contains the error taxonomy shared by context enrichment and notification delivery.
// Domain errors are infrastructure-agnostic; adapters map them to log lines or HTTP responses.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnknownProvider indicates a provider id that no catalog entry resolves.
	ErrUnknownProvider = errors.New("unknown context provider")

	// ErrDuplicateProvider indicates a provider id registered twice in a catalog.
	ErrDuplicateProvider = errors.New("duplicate context provider")

	// ErrInvalidProvider indicates a provider definition without an instance
	// or with a kind other than static or dynamic.
	ErrInvalidProvider = errors.New("invalid context provider")

	// ErrUnknownGroup indicates a context group no provider was added to.
	ErrUnknownGroup = errors.New("unknown context group")

	// ErrNotificationFailed marks a notification that could not be delivered.
	// Reporters must not turn such errors into new notifications.
	ErrNotificationFailed = errors.New("notification failed")

	// ErrNotificationsDisabled indicates notifications are switched off by configuration.
	ErrNotificationsDisabled = errors.New("notifications disabled")
)

// ProviderError wraps a failure raised while computing a provider's context.
type ProviderError struct {
	ID  string
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("context provider %q: %v", e.ID, e.Err)
}

// Unwrap returns the underlying provider failure.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a provider error with context.
func NewProviderError(id string, err error) error {
	return &ProviderError{ID: id, Err: err}
}

// UnknownProviderError names the provider id that could not be resolved.
type UnknownProviderError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown context provider %q", e.ID)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnknownProviderError) Unwrap() error {
	return ErrUnknownProvider
}

// NewUnknownProviderError creates an unknown provider error.
func NewUnknownProviderError(id string) error {
	return &UnknownProviderError{ID: id}
}

// NotificationFailedError describes a delivery failure on one channel.
type NotificationFailedError struct {
	Kind    string
	Channel string
	Cause   error
}

// Error implements the error interface.
func (e *NotificationFailedError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s notification via %s failed: %v", e.Kind, e.Channel, e.Cause)
	}

	return fmt.Sprintf("%s notification failed: %v", e.Kind, e.Cause)
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *NotificationFailedError) Unwrap() []error {
	return []error{ErrNotificationFailed, e.Cause}
}

// NewNotificationFailedError creates a delivery failure for the given notification kind and channel.
func NewNotificationFailedError(kind, channel string, cause error) error {
	return &NotificationFailedError{Kind: kind, Channel: channel, Cause: cause}
}

// IsUnknownProvider checks if an error is an unknown provider error.
func IsUnknownProvider(err error) bool {
	return errors.Is(err, ErrUnknownProvider)
}

// IsNotificationFailed checks if an error is a notification delivery failure.
func IsNotificationFailed(err error) bool {
	return errors.Is(err, ErrNotificationFailed)
}
