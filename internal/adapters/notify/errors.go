// Package notify delivers notifications over mail and Telegram and routes
// them per notification kind.
package notify

import "errors"

var (
	// ErrDispatcherClosed is returned by Notify after Close.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	// ErrUnknownChannel indicates a route naming a channel that was not registered.
	ErrUnknownChannel = errors.New("unknown notification channel")

	// ErrQueueFull is reported when a queued channel cannot accept more work.
	ErrQueueFull = errors.New("notification queue full")

	// ErrTelegramRejected is returned when the Bot API answers with ok=false.
	ErrTelegramRejected = errors.New("telegram rejected message")
)
