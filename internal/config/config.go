package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings for the server.
type Config struct {
	Addr       string `yaml:"addr"`
	DSN        string `yaml:"dsn"`
	SessionKey string `yaml:"session_key"`
	BaseURL    string `yaml:"base_url"`
	AdminEmail string `yaml:"admin_email"`
	UploadsDir string `yaml:"uploads_dir"`
	LogLevel   string `yaml:"log_level"`

	// Comments
	CommentsPerPage   int  `yaml:"comments_per_page"`
	ModerationEnabled bool `yaml:"moderation_enabled"`
	MathSpamEnabled   bool `yaml:"math_spam_enabled"`

	// Akismet is disabled while AkismetKey is empty.
	AkismetKey      string `yaml:"akismet_key"`
	AkismetEndpoint string `yaml:"akismet_endpoint"`
	AkismetSaveSpam bool   `yaml:"akismet_save_spam"`

	// An empty RedisURL falls back to an in-process throttle.
	RedisURL          string        `yaml:"redis_url"`
	CommentRateLimit  int           `yaml:"comment_rate_limit"`
	CommentRateWindow time.Duration `yaml:"comment_rate_window"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DSN:               "folio.db",
		BaseURL:           "http://localhost:8080/",
		AdminEmail:        "admin@example.com",
		UploadsDir:        "uploads",
		LogLevel:          "info",
		CommentsPerPage:   10,
		MathSpamEnabled:   true,
		AkismetEndpoint:   "https://rest.akismet.com/1.1/",
		AkismetSaveSpam:   true,
		CommentRateLimit:  5,
		CommentRateWindow: time.Minute,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and finally FOLIO_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Addr = getenv("FOLIO_ADDR", cfg.Addr)
	cfg.DSN = getenv("FOLIO_DSN", cfg.DSN)
	cfg.SessionKey = getenv("FOLIO_SESSION_KEY", cfg.SessionKey)
	cfg.BaseURL = getenv("FOLIO_BASE_URL", cfg.BaseURL)
	cfg.AdminEmail = getenv("FOLIO_ADMIN_EMAIL", cfg.AdminEmail)
	cfg.UploadsDir = getenv("FOLIO_UPLOADS_DIR", cfg.UploadsDir)
	cfg.LogLevel = getenv("FOLIO_LOG_LEVEL", cfg.LogLevel)
	cfg.CommentsPerPage = getenvInt("FOLIO_COMMENTS_PER_PAGE", cfg.CommentsPerPage)
	cfg.ModerationEnabled = getenvBool("FOLIO_COMMENT_MODERATION", cfg.ModerationEnabled)
	cfg.MathSpamEnabled = getenvBool("FOLIO_MATH_SPAM", cfg.MathSpamEnabled)
	cfg.AkismetKey = getenv("FOLIO_AKISMET_KEY", cfg.AkismetKey)
	cfg.AkismetEndpoint = getenv("FOLIO_AKISMET_ENDPOINT", cfg.AkismetEndpoint)
	cfg.AkismetSaveSpam = getenvBool("FOLIO_AKISMET_SAVE_SPAM", cfg.AkismetSaveSpam)
	cfg.RedisURL = getenv("FOLIO_REDIS_URL", cfg.RedisURL)
	cfg.CommentRateLimit = getenvInt("FOLIO_COMMENT_RATE_LIMIT", cfg.CommentRateLimit)
	if secs := getenvInt("FOLIO_COMMENT_RATE_WINDOW_SECONDS", 0); secs > 0 {
		cfg.CommentRateWindow = time.Duration(secs) * time.Second
	}

	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.CommentsPerPage <= 0 {
		cfg.CommentsPerPage = 10
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if len(c.SessionKey) < 32 {
		return errors.New("session key must be at least 32 characters long")
	}
	if c.CommentRateLimit <= 0 {
		return fmt.Errorf("comment rate limit must be positive, got %d", c.CommentRateLimit)
	}
	if c.CommentRateWindow <= 0 {
		return fmt.Errorf("comment rate window must be positive, got %s", c.CommentRateWindow)
	}
	return nil
}

// AkismetEnabled reports whether comments are checked against Akismet.
func (c Config) AkismetEnabled() bool {
	return c.AkismetKey != ""
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
