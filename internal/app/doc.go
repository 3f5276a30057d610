// Package app wires context collection, logging and notifications into the
// API applications use.
//
// Contextify is the logging facade: each call refreshes dynamic context,
// logs through slog and remembers the event so it can be forwarded as a
// notification. Reporter turns errors and recovered panics into exception
// notifications. Bootstrap builds the context manager from configuration.
//
// This package depends on ports only. Channels and the dispatcher are
// constructed by the caller and passed in as a ports.Notifier.
package app
