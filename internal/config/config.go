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

type Config struct {
	Port           string        `yaml:"port"`
	StoreDriver    string        `yaml:"store_driver"`
	DatabaseURL    string        `yaml:"database_url"`
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDatabase  string        `yaml:"mongo_database"`
	RedisURL       string        `yaml:"redis_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	FrontendOrigin string        `yaml:"frontend_origin"`
	MasterKey      string        `yaml:"master_key"`
	TypingDelay    time.Duration `yaml:"typing_delay"`
	RetentionDays  int           `yaml:"retention_days"`
	RetentionCron  string        `yaml:"retention_schedule"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	LogLevel       string        `yaml:"log_level"`
	DefaultCountry string        `yaml:"default_country"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		StoreDriver:    "memory",
		MongoDatabase:  "mindcare",
		TokenTTL:       7 * 24 * time.Hour,
		FrontendOrigin: "http://localhost:3000",
		TypingDelay:    1500 * time.Millisecond,
		RetentionCron:  "@daily",
		RateLimit:      60,
		RateWindow:     time.Minute,
		LogLevel:       "info",
		DefaultCountry: "KE",
	}
}

// Load starts from defaults, applies the YAML file named by CONFIG_FILE if
// any, then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.FrontendOrigin, "FRONTEND_ORIGIN")
	setString(&c.MasterKey, "MASTER_KEY")
	setString(&c.RetentionCron, "RETENTION_SCHEDULE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DefaultCountry, "DEFAULT_COUNTRY")

	for key, dst := range map[string]*time.Duration{
		"TOKEN_TTL":    &c.TokenTTL,
		"TYPING_DELAY": &c.TypingDelay,
		"RATE_WINDOW":  &c.RateWindow,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*int{
		"RETENTION_DAYS": &c.RetentionDays,
		"RATE_LIMIT":     &c.RateLimit,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MasterKey != "" && len(c.MasterKey) < 32 {
		return errors.New("MASTER_KEY must be at least 32 bytes")
	}
	if c.TypingDelay < 0 {
		return errors.New("TYPING_DELAY must not be negative")
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return errors.New("RATE_LIMIT and RATE_WINDOW must be positive")
	}
	return nil
}

// Addr is the listen address for Port, which may already carry a host.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	// Bare integers are milliseconds.
	if ms, err := strconv.Atoi(raw); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	*dst = val
	return nil
}
