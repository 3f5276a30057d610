// Package ports defines the contracts between the application layer and the
// adapters that deliver notifications or report health.
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/contextify/internal/domain"
)

// Notification kinds, as used for channel routing.
const (
	KindLog       = domain.KindLog
	KindException = domain.KindException
)

// Notification is a message delivered over one or more channels.
type Notification interface {
	// Kind selects the channel route ("log" or "exception").
	Kind() string

	// Subject is a one-line summary, used as the mail subject.
	Subject() string

	// Text renders the full plain-text body.
	Text() string

	// OccurredAt is when the underlying event happened.
	OccurredAt() time.Time
}

// Channel delivers a notification to one destination type.
type Channel interface {
	// Name identifies the channel in routing configuration ("mail", "telegram").
	Name() string

	// Send delivers n, respecting ctx cancellation.
	Send(ctx context.Context, n Notification) error
}

// Notifier routes notifications to the channels configured for their kind.
type Notifier interface {
	// Notify delivers n. A non-empty only restricts delivery to the named
	// channels; except removes channels from the result. Channels configured
	// with a queue deliver asynchronously and never fail the call.
	Notify(ctx context.Context, n Notification, only, except []string) error
}
