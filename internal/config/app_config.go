package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// DataDir is the root data directory. Defaults to ~/.mailadapter.
	DataDir string `envconfig:"MAILADAPTER_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Enqueue makes dispatch publish notifications to the event bus instead of
	// sending them inline.
	Enqueue bool `envconfig:"MAILADAPTER_ENQUEUE" default:"false"`

	// Workers is the number of event bus workers used when Enqueue is set.
	Workers int `envconfig:"MAILADAPTER_WORKERS" default:"3"`

	// Port is the HTTP server port used by "serve". Defaults to 8990.
	Port int `envconfig:"MAILADAPTER_PORT" default:"8990"`

	// CORSOrigins lists the origins allowed to call the HTTP API.
	CORSOrigins []string `envconfig:"MAILADAPTER_CORS_ORIGINS" default:"*"`

	// TemplatesDir, when set, is searched for subject and body templates by name.
	TemplatesDir string `envconfig:"MAILADAPTER_TEMPLATES_DIR"`

	SMTP SMTPSettings

	Tracing TracingSettings
}

// TracingSettings configures OpenTelemetry span export. Tracing is off
// unless an OTLP endpoint is set.
type TracingSettings struct {
	Endpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
	ServiceName string  `envconfig:"OTEL_SERVICE_NAME" default:"mailadapter"`
	SampleRatio float64 `envconfig:"OTEL_TRACES_SAMPLER_ARG" default:"1"`
}

// SMTPSettings holds the SMTP server connection settings.
type SMTPSettings struct {
	Host       string        `envconfig:"SMTP_HOST"`
	Port       int           `envconfig:"SMTP_PORT" default:"587"`
	Username   string        `envconfig:"SMTP_USERNAME"`
	Password   string        `envconfig:"SMTP_PASSWORD"`
	From       string        `envconfig:"SMTP_FROM"`
	FromName   string        `envconfig:"SMTP_FROM_NAME"`
	Encryption string        `envconfig:"SMTP_ENCRYPTION" default:"starttls"`
	Timeout    time.Duration `envconfig:"SMTP_TIMEOUT" default:"30s"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.mailadapter if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".mailadapter")
	}

	switch c.SMTP.Encryption {
	case notification.EncryptionNone, notification.EncryptionStartTLS, notification.EncryptionSSLTLS:
	default:
		return nil, fmt.Errorf("loading config: unsupported SMTP_ENCRYPTION %q", c.SMTP.Encryption)
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return nil, fmt.Errorf("loading config: OTEL_TRACES_SAMPLER_ARG must be between 0 and 1, got %v",
			c.Tracing.SampleRatio)
	}

	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.mailadapter/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite database file.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "mailadapter.db")
}

// SMTPConfig converts the SMTP settings into the transport configuration.
func (c *AppConfig) SMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:       c.SMTP.Host,
		Port:       c.SMTP.Port,
		Username:   c.SMTP.Username,
		Password:   c.SMTP.Password,
		FromAddr:   c.SMTP.From,
		FromName:   c.SMTP.FromName,
		Encryption: c.SMTP.Encryption,
		Timeout:    c.SMTP.Timeout,
	}
}
