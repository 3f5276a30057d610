package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jsamuelsen/contextify/internal/adapters/clients"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/ports"
)

// ChannelMail is the routing name of the mail channel.
const ChannelMail = "mail"

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailOption customizes a MailChannel.
type MailOption func(*MailChannel)

// WithSendMail replaces smtp.SendMail.
func WithSendMail(fn SendMailFunc) MailOption {
	return func(m *MailChannel) { m.sendMail = fn }
}

// WithMailClock replaces time.Now for the Date header of undated notifications.
func WithMailClock(now func() time.Time) MailOption {
	return func(m *MailChannel) { m.now = now }
}

// MailChannel sends notifications as plain-text mail over SMTP.
type MailChannel struct {
	addr     string
	from     string
	to       []string
	auth     smtp.Auth
	sendMail SendMailFunc
	breaker  *clients.Breaker
	now      func() time.Time
}

var _ ports.Channel = (*MailChannel)(nil)

// NewMailChannel creates a mail channel sending to recipients.
func NewMailChannel(cfg config.MailConfig, recipients []string, circuit config.CircuitBreakerConfig, opts ...MailOption) (*MailChannel, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}

	if len(recipients) == 0 {
		return nil, errors.New("at least one mail recipient is required")
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultMailPort
	}

	from := cfg.From
	if from == "" {
		from = recipients[0]
	}

	m := &MailChannel{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from:     from,
		to:       recipients,
		sendMail: smtp.SendMail,
		breaker:  clients.NewBreaker(circuit),
		now:      time.Now,
	}

	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Name implements ports.Channel.
func (m *MailChannel) Name() string { return ChannelMail }

// Send implements ports.Channel. smtp.SendMail has no context, so a
// cancelled ctx abandons the in-flight delivery.
func (m *MailChannel) Send(ctx context.Context, n ports.Notification) error {
	msg, err := m.message(n)
	if err != nil {
		return err
	}

	return m.breaker.Do(func() error {
		done := make(chan error, 1)
		go func() {
			done <- m.sendMail(m.addr, m.auth, m.from, m.to, msg)
		}()

		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("sending mail via %s: %w", m.addr, err)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// HealthCheck dials the SMTP server.
func (m *MailChannel) HealthCheck() ports.HealthChecker {
	return ports.HealthCheckFunc{
		CheckName: "notify.mail",
		Fn: func(ctx context.Context) error {
			var d net.Dialer

			conn, err := d.DialContext(ctx, "tcp", m.addr)
			if err != nil {
				return fmt.Errorf("dialing %s: %w", m.addr, err)
			}

			return conn.Close()
		},
	}
}

// message renders n as an RFC 5322 message with a quoted-printable body.
func (m *MailChannel) message(n ports.Notification) ([]byte, error) {
	date := n.OccurredAt()
	if date.IsZero() {
		date = m.now()
	}

	var buf bytes.Buffer

	header := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	header("From", m.from)
	header("To", strings.Join(m.to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", n.Subject()))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	w := quotedprintable.NewWriter(&buf)
	body := strings.ReplaceAll(n.Text(), "\n", "\r\n")
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("encoding mail body: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encoding mail body: %w", err)
	}

	return buf.Bytes(), nil
}
