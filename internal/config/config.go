// Package config provides application configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nbapi/internal/broker"
	apperrors "nbapi/internal/errors"
	"nbapi/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	// Broker credentials
	Username       string `yaml:"username" validate:"required"`
	Password       string `yaml:"password"`
	PasswordSealed string `yaml:"password_sealed"`
	Phone          string `yaml:"phone"`

	// Broker endpoints
	SSOURL  string        `yaml:"sso_url" validate:"omitempty,url"`
	APIURL  string        `yaml:"api_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Database settings
	DBPath string `yaml:"db_path"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFile  string `yaml:"log_file"`

	// EncryptionSecret is not read from YAML so that a config file never
	// carries both the sealed password and its key.
	EncryptionSecret string `yaml:"-"`
}

var validate = validator.New()

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation, "reading config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation, "parsing config file", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		DBPath:   filepath.Join("data", "nbdb.db"),
		LogLevel: "info",
	}
}

func (c *Config) applyEnv() error {
	c.Username = getEnv("NBDB_USERNAME", c.Username)
	c.Password = getEnv("NBDB_PASSWORD", c.Password)
	c.PasswordSealed = getEnv("NBDB_PASSWORD_SEALED", c.PasswordSealed)
	c.EncryptionSecret = getEnv("NBDB_ENCRYPTION_SECRET", c.EncryptionSecret)
	c.Phone = getEnv("NBDB_PHONE", c.Phone)
	c.SSOURL = getEnv("NBDB_SSO_URL", c.SSOURL)
	c.APIURL = getEnv("NBDB_API_URL", c.APIURL)
	c.DBPath = getEnv("NBDB_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("NBDB_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("NBDB_LOG_FILE", c.LogFile)

	if v := os.Getenv("NBDB_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrValidation, "NBDB_TIMEOUT must be a duration such as 30s", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the fields needed to talk to the broker.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "invalid configuration", err)
	}
	if c.Password == "" && c.PasswordSealed == "" {
		return apperrors.ValidationField("password", "NBDB_PASSWORD or NBDB_PASSWORD_SEALED is required")
	}
	if c.Password == "" && c.EncryptionSecret == "" {
		return apperrors.ValidationField("encryption_secret", "NBDB_ENCRYPTION_SECRET is required to open a sealed password")
	}
	return nil
}

// ResolvePassword returns the plaintext password, opening the sealed form
// when no plaintext one is configured.
func (c *Config) ResolvePassword() (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	enc, err := broker.NewEncryptor(c.EncryptionSecret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrValidation, "encryption secret", err)
	}
	password, err := enc.Open(c.PasswordSealed, c.Username)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrAuthentication, "opening sealed password", err)
	}
	return password, nil
}

// Logger returns the logger settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		OutputFile: c.LogFile,
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
