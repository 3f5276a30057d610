package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/contextify/internal/adapters/clients"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/ports"
)

// ChannelTelegram is the routing name of the Telegram channel.
const ChannelTelegram = "telegram"

// telegramTextLimit is the Bot API limit for sendMessage text.
const telegramTextLimit = 4096

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// TelegramChannel sends notifications through the Telegram Bot API.
type TelegramChannel struct {
	client *clients.Client
	chatID string
}

var _ ports.Channel = (*TelegramChannel)(nil)

// NewTelegramClient builds the HTTP client for the Bot API. The token becomes
// part of the base URL and never appears in logged paths.
func NewTelegramClient(cfg config.TelegramConfig, client config.ClientConfig, logger *slog.Logger) (*clients.Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultTelegramBaseURL
	}

	return clients.New(&clients.Config{
		BaseURL:     strings.TrimSuffix(base, "/") + "/bot" + cfg.Token,
		ServiceName: ChannelTelegram,
		Timeout:     client.Timeout,
		Retry:       client.Retry,
		Circuit:     client.CircuitBreaker,
		Transport:   client.Transport,
		Logger:      logger,
	})
}

// NewTelegramChannel creates a channel posting to chatID.
func NewTelegramChannel(client *clients.Client, chatID string) (*TelegramChannel, error) {
	if client == nil {
		return nil, errors.New("telegram client is required")
	}

	if chatID == "" {
		return nil, errors.New("telegram chat id is required")
	}

	return &TelegramChannel{client: client, chatID: chatID}, nil
}

// Name implements ports.Channel.
func (t *TelegramChannel) Name() string { return ChannelTelegram }

// Send implements ports.Channel.
func (t *TelegramChannel) Send(ctx context.Context, n ports.Notification) error {
	resp, err := t.client.PostJSON(ctx, "/sendMessage", sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  domain.Truncate(n.Text(), telegramTextLimit-len("...")),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("posting telegram message: %w", err)
	}

	return decodeTelegram(resp)
}

// HealthCheck calls getMe, which validates the token.
func (t *TelegramChannel) HealthCheck() ports.HealthChecker {
	return ports.HealthCheckFunc{
		CheckName: "notify.telegram",
		Fn: func(ctx context.Context) error {
			resp, err := t.client.Get(ctx, "/getMe")
			if err != nil {
				return err
			}

			return decodeTelegram(resp)
		},
	}
}

func decodeTelegram(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	var body telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("%w: HTTP %d", ErrTelegramRejected, resp.StatusCode)
		}
		return fmt.Errorf("decoding telegram response: %w", err)
	}

	if !body.OK || resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrTelegramRejected, body.Description)
	}

	return nil
}
