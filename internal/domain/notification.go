package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Body limits, in runes, for the parts of a notification a sender controls.
const (
	MessageLimit   = 512
	ExceptionLimit = 1024
)

// Notification kinds.
const (
	KindLog       = "log"
	KindException = "exception"
)

// LogNotification forwards one logged event.
type LogNotification struct {
	Level   string         // severity name, e.g. "error"
	Message string         // log message
	Context map[string]any // attributes passed with the log call
	Extra   map[string]any // "notification" group context
	At      time.Time
}

// Kind implements ports.Notification.
func (n LogNotification) Kind() string { return KindLog }

// OccurredAt implements ports.Notification.
func (n LogNotification) OccurredAt() time.Time { return n.At }

// Subject is "<Level>: <message>" with the message cut to MessageLimit.
func (n LogNotification) Subject() string {
	return capitalize(n.Level) + ": " + Truncate(firstLine(n.Message), MessageLimit)
}

// Text renders the message, level, call context and extra context.
func (n LogNotification) Text() string {
	var b strings.Builder

	b.WriteString(Truncate(n.Message, MessageLimit))
	b.WriteString("\n\nLevel: ")
	b.WriteString(capitalize(n.Level))

	if len(n.Context) > 0 {
		b.WriteString("\nContext: ")
		b.WriteString(Truncate(encodeContext(n.Context), MessageLimit))
	}

	writeSection(&b, "Extra context", n.Extra)

	return b.String()
}

// ExceptionNotification reports an error or recovered panic.
type ExceptionNotification struct {
	Err    error
	Stack  string            // optional stack trace
	Extra  map[string]any    // "notification" group context
	Server map[string]string // filtered process environment
	At     time.Time
}

// Kind implements ports.Notification.
func (n ExceptionNotification) Kind() string { return KindException }

// OccurredAt implements ports.Notification.
func (n ExceptionNotification) OccurredAt() time.Time { return n.At }

// Subject is "Exception: " followed by the first line of the error.
func (n ExceptionNotification) Subject() string {
	return "Exception: " + Truncate(firstLine(n.errorText()), MessageLimit)
}

// Text renders the error with its stack, then extra context and server environment.
func (n ExceptionNotification) Text() string {
	var b strings.Builder

	exception := n.errorText()
	if n.Stack != "" {
		exception += "\n" + n.Stack
	}

	b.WriteString("Exception: ")
	b.WriteString(Truncate(exception, ExceptionLimit))

	writeSection(&b, "Extra context", n.Extra)

	if len(n.Server) > 0 {
		server := make(map[string]any, len(n.Server))
		for k, v := range n.Server {
			server[k] = v
		}
		writeSection(&b, "Server", server)
	}

	return b.String()
}

func (n ExceptionNotification) errorText() string {
	if n.Err == nil {
		return "unknown error"
	}

	return n.Err.Error()
}

// Truncate cuts s to limit runes, appending "..." when anything was removed.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit]) + "..."
}

// RenderContext formats m as sorted "key: value" lines.
func RenderContext(m map[string]any) string {
	lines := make([]string, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		lines = append(lines, key+": "+formatValue(m[key]))
	}

	return strings.Join(lines, "\n")
}

func writeSection(b *strings.Builder, title string, m map[string]any) {
	if len(m) == 0 {
		return
	}

	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(RenderContext(m))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	default:
		switch reflect.ValueOf(val).Kind() {
		case reflect.Map, reflect.Slice, reflect.Struct:
			return encodeContext(val)
		default:
			return fmt.Sprint(val)
		}
	}
}

func encodeContext(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(data)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	r, size := utf8.DecodeRuneInString(s)

	return strings.ToUpper(string(r)) + s[size:]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
