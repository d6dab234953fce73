package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML config file.
const FileEnv = "FINTRACK_CONFIG"

type Config struct {
	// Finance service
	APIURL      string        `yaml:"api_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	TokenTTL    time.Duration `yaml:"token_ttl"`

	// Session provider
	AuthURL     string `yaml:"auth_url"`
	AuthAnonKey string `yaml:"auth_anon_key"`
	SessionFile string `yaml:"session_file"`

	// Local snapshots of the last loaded collections; empty disables them
	SnapshotDBPath string `yaml:"snapshot_db_path"`

	// AMQP change events; empty URL disables publishing
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets export
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`
	GoogleSheetName     string `yaml:"google_sheet_name"`

	// Dev server
	DevServerPort string `yaml:"devserver_port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	dir := defaultDataDir()
	return &Config{
		APIURL:      "http://localhost:8000",
		HTTPTimeout: 15 * time.Second,
		TokenTTL:    30 * time.Minute,

		SessionFile:    filepath.Join(dir, "session.json"),
		SnapshotDBPath: filepath.Join(dir, "snapshots.db"),

		AMQPExchange: "fintrack",
		AMQPQueue:    "fintrack_changes",

		GoogleSheetName: "Transactions",

		DevServerPort: "8000",

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// FINTRACK_CONFIG (if any) and finally the environment.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.APIURL = getEnv("API_URL", cfg.APIURL)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)

	cfg.AuthURL = getEnv("AUTH_URL", cfg.AuthURL)
	cfg.AuthAnonKey = getEnv("AUTH_ANON_KEY", cfg.AuthAnonKey)
	cfg.SessionFile = getEnv("SESSION_FILE", cfg.SessionFile)

	cfg.SnapshotDBPath = getEnv("SNAPSHOT_DB_PATH", cfg.SnapshotDBPath)
	if v, ok := os.LookupEnv("SNAPSHOT_DB_PATH"); ok && strings.TrimSpace(v) == "" {
		cfg.SnapshotDBPath = ""
	}

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)

	cfg.DevServerPort = getEnv("DEVSERVER_PORT", cfg.DevServerPort)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// LoadFile overlays the YAML document at path onto c. Keys missing from the
// file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate finance service URL
	if c.APIURL == "" {
		errors = append(errors, "API URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 5 minutes", c.HTTPTimeout))
	}

	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	// Validate session provider if configured
	if c.AuthURL != "" {
		if parsedURL, err := url.Parse(c.AuthURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid auth URL '%s': %v", c.AuthURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid auth URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.AuthAnonKey == "" {
			errors = append(errors, "auth anon key cannot be empty when auth URL is provided")
		}
	}

	if c.SessionFile == "" {
		errors = append(errors, "session file path cannot be empty")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets export if configured
	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
	}

	// Validate dev server port
	if port, err := strconv.Atoi(c.DevServerPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.DevServerPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "fintrack")
	}
	return filepath.Join(".", "data")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
