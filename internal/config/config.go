// ABOUTME: Configuration loading and parsing for pve-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pve-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Providers ProvidersConfig `yaml:"providers"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the listen address and TLS material. The default cert
// paths are the node's own certificate, so the gateway serves on the same
// trust root as the web UI.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TLS reports whether the server should terminate TLS itself.
func (s ServerConfig) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

// GatewayConfig holds orchestration tuning. Node overrides /nodes discovery
// when set; empty means resolve from the API.
type GatewayConfig struct {
	Node        string        `yaml:"node"`
	SnapshotTTL time.Duration `yaml:"-"`
	ExecTimeout time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SnapshotTTLRaw string `yaml:"snapshot_ttl"`
	ExecTimeoutRaw string `yaml:"exec_timeout"`
}

// ProvidersConfig holds server-side API keys per completion backend. All are
// optional; a key sent in the request body takes precedence.
type ProvidersConfig struct {
	OpenAIKey string `yaml:"openai_api_key"`
	GeminiKey string `yaml:"gemini_api_key"`
	XAIKey    string `yaml:"xai_api_key"`
}

// DatabaseConfig holds the action ledger location. An empty path disables
// the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds API authentication configuration. When Required is false
// the endpoints are open, matching a gateway bound to a trusted LAN.
type AuthConfig struct {
	Required  bool   `yaml:"required"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given: TLS on the
// node certificate, port 5555, snapshot and exec defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":5555",
			CertFile: "/etc/pve/local/pve-ssl.pem",
			KeyFile:  "/etc/pve/local/pve-ssl.key",
		},
		Gateway: GatewayConfig{
			SnapshotTTL: 10 * time.Second,
			ExecTimeout: 300 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	// Cert and key travel together
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file must both be set or both be empty")
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.required is true")
	}

	if c.Gateway.SnapshotTTL <= 0 {
		return fmt.Errorf("gateway.snapshot_ttl must be positive")
	}
	if c.Gateway.ExecTimeout <= 0 {
		return fmt.Errorf("gateway.exec_timeout must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Gateway.SnapshotTTLRaw != "" {
		cfg.Gateway.SnapshotTTL, err = time.ParseDuration(cfg.Gateway.SnapshotTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing snapshot_ttl %q: %w", cfg.Gateway.SnapshotTTLRaw, err)
		}
	}

	if cfg.Gateway.ExecTimeoutRaw != "" {
		cfg.Gateway.ExecTimeout, err = time.ParseDuration(cfg.Gateway.ExecTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing exec_timeout %q: %w", cfg.Gateway.ExecTimeoutRaw, err)
		}
	}

	return nil
}
