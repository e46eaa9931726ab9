package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the chat relay configuration.
type Config struct {
	// Port is the HTTP listen port
	Port string

	// AllowedOrigins is the comma separated CORS allow-list
	AllowedOrigins string

	// TypingTimeout is how long a typing indicator lives without a refresh
	TypingTimeout time.Duration

	// MaxMessageLength is the maximum message text size in bytes
	MaxMessageLength int

	// MaxRoomHistory caps the messages kept per private room (0 keeps all)
	MaxRoomHistory int

	// MessagesPerSecond and BurstSize shape the per-connection inbound token bucket
	MessagesPerSecond int
	BurstSize         int

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// LogFormat is text or json
	LogFormat string

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:              "3000",
		AllowedOrigins:    "http://localhost:5173,http://localhost:3000",
		TypingTimeout:     3 * time.Second,
		MaxMessageLength:  5000,
		MaxRoomHistory:    500,
		MessagesPerSecond: 10,
		BurstSize:         20,
		LogLevel:          "info",
		LogFormat:         "text",
		ShutdownTimeout:   30 * time.Second,
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithPort sets the listen port.
func WithPort(port string) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithAllowedOrigins sets the CORS allow-list.
func WithAllowedOrigins(origins string) Option {
	return func(c *Config) {
		c.AllowedOrigins = origins
	}
}

// WithTypingTimeout sets the typing indicator lifetime.
func WithTypingTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TypingTimeout = d
	}
}

// WithLimits sets the message size and room history limits.
func WithLimits(maxMessageLength, maxRoomHistory int) Option {
	return func(c *Config) {
		c.MaxMessageLength = maxMessageLength
		c.MaxRoomHistory = maxRoomHistory
	}
}

// WithRateLimit sets the inbound rate limit per connection.
func WithRateLimit(messagesPerSecond, burst int) Option {
	return func(c *Config) {
		c.MessagesPerSecond = messagesPerSecond
		c.BurstSize = burst
	}
}

// WithLogging sets the log level and format.
func WithLogging(level, format string) Option {
	return func(c *Config) {
		c.LogLevel = level
		c.LogFormat = format
	}
}

// New builds a Config from defaults and opts.
func New(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if c.TypingTimeout <= 0 {
		return errors.New("typing timeout must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return errors.New("max message length must be positive")
	}
	if c.MaxRoomHistory < 0 {
		return errors.New("max room history cannot be negative")
	}
	if c.MessagesPerSecond <= 0 || c.BurstSize <= 0 {
		return errors.New("rate limit values must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// Load reads the optional env files (".env" when none are given), applies
// environment variables over the defaults and validates the result.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults overridden by the variables getenv returns.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	p := envParser{getenv: getenv}

	p.str("PORT", &cfg.Port)
	p.str("CORS_ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	p.duration("TYPING_TIMEOUT", &cfg.TypingTimeout)
	p.integer("MAX_MESSAGE_LENGTH", &cfg.MaxMessageLength)
	p.integer("MAX_ROOM_HISTORY", &cfg.MaxRoomHistory)
	p.integer("WS_MESSAGES_PER_SECOND", &cfg.MessagesPerSecond)
	p.integer("WS_BURST_SIZE", &cfg.BurstSize)
	p.str("LOG_LEVEL", &cfg.LogLevel)
	p.str("LOG_FORMAT", &cfg.LogFormat)
	p.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envParser struct {
	getenv func(string) string
	errs   []error
}

func (p *envParser) str(key string, dst *string) {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		*dst = v
	}
}

func (p *envParser) integer(key string, dst *int) {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *envParser) duration(key string, dst *time.Duration) {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

// Origins returns the CORS allow-list as a slice.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
