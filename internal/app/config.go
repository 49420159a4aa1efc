package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/config"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
)

// Config is the full process configuration. Every key can come from the YAML/TOML file
// or from the environment variable named in its env tag.
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Journal JournalConfig `yaml:"journal" toml:"journal"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Render  RenderConfig  `yaml:"render" toml:"render"`
}

// APIConfig configures the remote API client.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" toml:"base_url" env:"FUTUUR_BASE_URL"`
	PublicKey      string        `yaml:"public_key" toml:"public_key" env:"FUTUUR_PUBLIC_KEY"`
	PrivateKey     string        `yaml:"private_key" toml:"private_key" env:"FUTUUR_PRIVATE_KEY"`
	PublicPrefixes []string      `yaml:"public_prefixes" toml:"public_prefixes" env:"FUTUUR_PUBLIC_PREFIXES"`
	Timeout        time.Duration `yaml:"timeout" toml:"timeout" env:"FUTUUR_TIMEOUT"`
	UserAgent      string        `yaml:"user_agent" toml:"user_agent"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport  string `yaml:"transport" toml:"transport" env:"MCP_TRANSPORT"`
	Addr       string `yaml:"addr" toml:"addr" env:"MCP_ADDR"`
	AuthSecret string `yaml:"auth_secret" toml:"auth_secret" env:"MCP_AUTH_SECRET"`
}

// JournalConfig enables the request journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path" toml:"path" env:"FUTUUR_JOURNAL_DB"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"LOG_FORMAT"`
}

// RenderConfig tunes tool output.
type RenderConfig struct {
	Locale string `yaml:"locale" toml:"locale" env:"FUTUUR_LOCALE"`
}

// Transports accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        marketapi.DefaultBaseURL,
			PublicPrefixes: append([]string(nil), marketapi.DefaultPublicPrefixes...),
			Timeout:        30 * time.Second,
			UserAgent:      "futuur-mcp",
		},
		Server: ServerConfig{
			Transport: TransportStdio,
			Addr:      ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Render: RenderConfig{
			Locale: "en",
		},
	}
}

// LoadConfig reads path (which may be empty or missing) over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := config.LoadOrDefault(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	c.Server.Transport = strings.ToLower(strings.TrimSpace(c.Server.Transport))
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("config: server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config: api.timeout must not be negative")
	}
	if len(c.API.PublicPrefixes) == 0 {
		return fmt.Errorf("config: api.public_prefixes must list at least one prefix")
	}
	if _, err := marketapi.NewClassifier(c.API.PublicPrefixes); err != nil {
		return fmt.Errorf("config: api.public_prefixes: %w", err)
	}
	return nil
}

// Credentials returns the key pair held by the config.
func (c *Config) Credentials() marketapi.Credentials {
	return marketapi.Credentials{PublicKey: c.API.PublicKey, PrivateKey: c.API.PrivateKey}
}

// CredentialSource re-reads path and the environment on every call, so a reload sees edits to either.
func CredentialSource(path string) marketapi.CredentialSource {
	return func() (marketapi.Credentials, error) {
		cfg := DefaultConfig()
		if err := config.LoadOrDefault(path, cfg); err != nil {
			return marketapi.Credentials{}, err
		}
		return cfg.Credentials(), nil
	}
}
