package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "contextify",
			Version:     "1.0.0",
			Environment: "local",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.25,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures:   5,
				Timeout:       30 * time.Second,
				HalfOpenLimit: 3,
			},
			Transport: TransportConfig{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Contextify: ContextifyConfig{
			Enabled: true,
			Logs:    LogsConfig{Providers: []string{"pid", "caller"}},
			Notifications: NotificationsConfig{
				Providers: []string{"hostname"},
				Mail:      MailConfig{Port: 587},
				Telegram:  TelegramConfig{BaseURL: "https://api.telegram.org"},
			},
		},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

// TestConfig_Validate_Fields mutates one valid config per case. An empty
// wantErr means the mutation must still validate.
func TestConfig_Validate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		// app
		{"missing name", func(c *Config) { c.App.Name = "" }, "app.name is required"},
		{"missing version", func(c *Config) { c.App.Version = "" }, "app.version is required"},
		{"unknown environment", func(c *Config) { c.App.Environment = "staging" }, "app.environment must be one of: local dev qa prod test"},
		{"prod environment", func(c *Config) { c.App.Environment = "prod" }, ""},

		// server
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port is required"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port must be at most 65535"},
		{"highest port", func(c *Config) { c.Server.Port = 65535 }, ""},
		{"missing host", func(c *Config) { c.Server.Host = "" }, "server.host is required"},
		{"read timeout below a second", func(c *Config) { c.Server.ReadTimeout = 500 * time.Millisecond }, "server.read_timeout must be at least 1s"},

		// log
		{"syslog level", func(c *Config) { c.Log.Level = "critical" }, ""},
		{"trace level", func(c *Config) { c.Log.Level = "trace" }, ""},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }, "log.level must be one of"},
		{"levels are case sensitive", func(c *Config) { c.Log.Level = "INFO" }, "log.level must be one of"},
		{"pretty format", func(c *Config) { c.Log.Format = "pretty" }, ""},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format must be one of: json text pretty"},
		{"file enabled without path", func(c *Config) { c.Log.File = LogFileConfig{Enabled: true} }, "log.file.path is required when enabled is true"},
		{"file disabled without path", func(c *Config) { c.Log.File = LogFileConfig{} }, ""},
		{"file too large", func(c *Config) {
			c.Log.File = LogFileConfig{Enabled: true, Path: "/var/log/contextify.log", MaxSizeMB: 2048}
		}, "log.file.max_size must be at most 1024"},

		// telemetry
		{"telemetry disabled without endpoint", func(c *Config) { c.Telemetry = TelemetryConfig{} }, ""},
		{"telemetry enabled without endpoint", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "contextify"}
		}, "telemetry.endpoint is required when enabled is true"},
		{"telemetry endpoint not a URL", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "contextify", Endpoint: "collector"}
		}, "telemetry.endpoint must be a valid URL"},
		{"sampling rate above one", func(c *Config) { c.Telemetry.SamplingRate = 1.5 }, "telemetry.sampling_rate must be at most 1"},

		// client
		{"client timeout too short", func(c *Config) { c.Client.Timeout = 50 * time.Millisecond }, "client.timeout must be at least 100ms"},
		{"too many attempts", func(c *Config) { c.Client.Retry.MaxAttempts = 11 }, "client.retry.max_attempts must be at most 10"},
		{"multiplier too small", func(c *Config) { c.Client.Retry.Multiplier = 1.0 }, "client.retry.multiplier must be at least 1.1"},
		{"initial interval too short", func(c *Config) { c.Client.Retry.InitialInterval = time.Millisecond }, "client.retry.initial_interval must be at least 10ms"},
		{"no failures tolerated", func(c *Config) { c.Client.CircuitBreaker.MaxFailures = 0 }, "client.circuit_breaker.max_failures is required"},
		{"no half-open trial calls", func(c *Config) { c.Client.CircuitBreaker.HalfOpenLimit = 0 }, "client.circuit_breaker.half_open_limit is required"},
		{"no idle connections", func(c *Config) { c.Client.Transport.MaxIdleConns = 0 }, "client.transport.max_idle_conns is required"},

		// contextify
		{"empty provider id", func(c *Config) { c.Contextify.Logs.Providers = []string{"pid", ""} }, "contextify.logs.providers[1] is required"},
		{"empty skip prefix", func(c *Config) { c.Contextify.Call.SkipPrefixes = []string{""} }, "contextify.call.skip_prefixes[0] is required"},
		{"invalid mail address", func(c *Config) {
			c.Contextify.Notifications.MailAddresses = []string{"ops@example.com", "not-an-address"}
		}, "contextify.notifications.mail_addresses[1] must be a valid email address"},
		{"invalid mail host", func(c *Config) { c.Contextify.Notifications.Mail.Host = "smtp host" }, "contextify.notifications.mail.host must be a hostname or IP address"},
		{"invalid telegram url", func(c *Config) { c.Contextify.Notifications.Telegram.BaseURL = "api.telegram.org" }, "contextify.notifications.telegram.base_url must be a valid URL"},
		{"unknown notification kind", func(c *Config) {
			c.Contextify.Notifications.List = map[string]map[string]string{"audit": {"mail": ""}}
		}, "contextify.notifications.list[audit] must be one of: log exception"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_NotificationRouting(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		list    map[string]map[string]string
		setup   func(*NotificationsConfig)
		wantErr []string
	}{
		{
			name:    "ignored while notifications disabled",
			enabled: false,
			list:    map[string]map[string]string{"log": {"pager": ""}},
		},
		{
			name:    "unknown channel",
			enabled: true,
			list:    map[string]map[string]string{"log": {"pager": ""}},
			wantErr: []string{"contextify.notifications.list.log.pager must be one of: mail telegram"},
		},
		{
			name:    "mail needs recipients and host",
			enabled: true,
			list:    map[string]map[string]string{"exception": {"mail": ""}},
			wantErr: []string{
				"contextify.notifications.mail_addresses is required when mail is routed",
				"contextify.notifications.mail.host is required when mail is routed",
			},
		},
		{
			name:    "telegram needs chat and token",
			enabled: true,
			list:    map[string]map[string]string{"exception": {"telegram": "alerts"}},
			wantErr: []string{
				"contextify.notifications.telegram_chat_id is required when telegram is routed",
				"contextify.notifications.telegram.token is required when telegram is routed",
			},
		},
		{
			name:    "fully configured",
			enabled: true,
			list: map[string]map[string]string{
				"log":       {"mail": ""},
				"exception": {"mail": "", "telegram": "alerts"},
			},
			setup: func(n *NotificationsConfig) {
				n.MailAddresses = []string{"ops@example.com"}
				n.Mail.Host = "smtp.example.com"
				n.Mail.From = "contextify@example.com"
				n.TelegramChatID = "-100123"
				n.Telegram.Token = "bot-token"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			n := &cfg.Contextify.Notifications
			n.Enabled = tt.enabled
			n.List = tt.list
			if tt.setup != nil {
				tt.setup(n)
			}

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: "invalid"},
		Server: ServerConfig{Port: -1},
	}

	err := cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{"app.name", "app.version", "app.environment", "server.port", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFormatFieldPath(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"Config.server.port", "server.port"},
		{"Config.client.retry.max_attempts", "client.retry.max_attempts"},
		{"Config.contextify.logs.providers[0]", "contextify.logs.providers[0]"},
		{"Config", "Config"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFieldPath(tt.namespace))
		})
	}
}

func TestToKey(t *testing.T) {
	assert.Equal(t, "enabled is true", toKey("Enabled true"))
}
