package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

var (
	jwtPattern       = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern    = regexp.MustCompile(`(?i)^bearer\s+.+$`)
	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)

	// Telegram bot tokens: numeric bot id, colon, 35 url-safe characters.
	// Unanchored, so a string embedding a token is redacted as a whole.
	telegramTokenPattern = regexp.MustCompile(`\d{6,}:[A-Za-z0-9_-]{35}`)
)

// sensitiveFields are redacted wherever they appear, including inside the
// "extra" context group and server environment dumps.
var sensitiveFields = []string{
	"password", "secret", "token", "apiKey", "apikey", "api_key",
	"accessToken", "access_token", "refreshToken", "refresh_token",
	"credential", "credentials", "authorization", "auth", "bearer",
	"cookie", "session", "privateKey", "private_key", "secretKey", "secret_key",
	"smtp_password", "bot_token",
}

// DefaultRedactOptions returns the masq options for secret redaction.
//
//	opts := append(logging.DefaultRedactOptions(), masq.WithFieldName("pin"))
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+6)
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
		masq.WithRegex(telegramTokenPattern),
	)
}

// NewReplaceAttr creates a slog ReplaceAttr function that redacts sensitive
// data using DefaultRedactOptions plus opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}
