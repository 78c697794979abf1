package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the state directory, log files and MCP server
	AppName = "devtools-hub"

	// HomeEnvVar overrides the state directory (default ~/.devtools-hub)
	HomeEnvVar = "DEVTOOLS_HUB_HOME"

	// DefaultSiteURL is the public base URL used for sitemaps and the QR default text
	DefaultSiteURL = "https://www.devtoolshub.org"
)

// Config is the on-disk configuration. Every field can also be set by a flag or an
// environment variable; those take precedence over the file.
type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Identity IdentityConfig `yaml:"identity"`
	QR       QRConfig       `yaml:"qr"`
	Morse    MorseConfig    `yaml:"morse"`
	Server   ServerConfig   `yaml:"server"`
	JSON     JSONConfig     `yaml:"json"`
}

// HistoryConfig controls conversion history persistence
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes"`
	RetentionDays int    `yaml:"retention_days"`
}

// IdentityConfig controls how callers are identified
type IdentityConfig struct {
	UserEmail string `yaml:"user_email"`
	JWTSecret string `yaml:"jwt_secret"`
	JWKSURL   string `yaml:"jwks_url"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// QRConfig holds QR rendering defaults
type QRConfig struct {
	Style    string        `yaml:"style"`
	Size     int           `yaml:"size"`
	ECC      string        `yaml:"ecc"`
	Margin   int           `yaml:"margin"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// MorseConfig holds Morse audio defaults
type MorseConfig struct {
	WPM       int     `yaml:"wpm"`
	Frequency float64 `yaml:"frequency"`
}

// ServerConfig holds transport and HTTP surface settings
type ServerConfig struct {
	Transport      string        `yaml:"transport"`
	Port           string        `yaml:"port"`
	BaseURL        string        `yaml:"base_url"`
	EndpointPath   string        `yaml:"endpoint_path"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	SiteURL        string        `yaml:"site_url"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	TrustProxy     bool          `yaml:"trust_proxy"`
}

// JSONConfig holds formatter defaults
type JSONConfig struct {
	Indent int `yaml:"indent"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			Backend:       "file",
			MaxSizeBytes:  100 * 1024 * 1024,
			RetentionDays: 90,
		},
		QR: QRConfig{
			Style:    "mono",
			Size:     400,
			ECC:      "H",
			Margin:   2,
			CacheTTL: 10 * time.Minute,
		},
		Morse: MorseConfig{
			WPM:       20,
			Frequency: 600,
		},
		Server: ServerConfig{
			Transport:      "stdio",
			Port:           "18080",
			BaseURL:        "http://localhost",
			EndpointPath:   "/mcp",
			SessionTimeout: 30 * time.Minute,
			SiteURL:        DefaultSiteURL,
			RateLimit:      5,
			RateBurst:      20,
		},
		JSON: JSONConfig{
			Indent: 4,
		},
	}
}

// StateDir returns the directory holding logs, history and the config file
func StateDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return filepath.Abs(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, "."+AppName), nil
}

// DefaultPath returns ~/.devtools-hub/config.yaml
func DefaultPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path over the defaults. An empty path selects the
// default location, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.History.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("history.backend must be file or sqlite, got %q", c.History.Backend))
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("history.retention_days must not be negative"))
	}
	if c.History.MaxSizeBytes < 0 {
		errs = append(errs, fmt.Errorf("history.max_size_bytes must not be negative"))
	}

	if c.Identity.JWTSecret != "" && c.Identity.JWKSURL != "" {
		errs = append(errs, fmt.Errorf("identity.jwt_secret and identity.jwks_url are mutually exclusive"))
	}
	if u := c.Identity.JWKSURL; u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://localhost") {
		errs = append(errs, fmt.Errorf("identity.jwks_url must use https"))
	}

	switch strings.ToUpper(c.QR.ECC) {
	case "L", "M", "Q", "H":
	default:
		errs = append(errs, fmt.Errorf("qr.ecc must be one of L, M, Q, H, got %q", c.QR.ECC))
	}
	if c.QR.Size < 64 || c.QR.Size > 2048 {
		errs = append(errs, fmt.Errorf("qr.size must be between 64 and 2048, got %d", c.QR.Size))
	}

	if c.Morse.WPM < 5 || c.Morse.WPM > 60 {
		errs = append(errs, fmt.Errorf("morse.wpm must be between 5 and 60, got %d", c.Morse.WPM))
	}
	if c.Morse.Frequency < 100 || c.Morse.Frequency > 2000 {
		errs = append(errs, fmt.Errorf("morse.frequency must be between 100 and 2000 Hz, got %g", c.Morse.Frequency))
	}

	switch c.Server.Transport {
	case "stdio", "sse", "http":
	default:
		errs = append(errs, fmt.Errorf("server.transport must be stdio, sse or http, got %q", c.Server.Transport))
	}
	if !strings.HasPrefix(c.Server.EndpointPath, "/") {
		errs = append(errs, fmt.Errorf("server.endpoint_path must start with /"))
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit and server.rate_burst must not be negative"))
	}

	if c.JSON.Indent < 1 || c.JSON.Indent > 8 {
		errs = append(errs, fmt.Errorf("json.indent must be between 1 and 8, got %d", c.JSON.Indent))
	}

	return errors.Join(errs...)
}

// LoadDotEnv loads .env from the working directory without overriding variables that
// are already set. A missing file is not an error.
func LoadDotEnv(logger *logrus.Logger) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).Warn("Failed to load .env file")
		}
		return
	}
	logger.Debug("Loaded environment from .env")
}
