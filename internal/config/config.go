// Package config loads medpredict settings from a YAML file, a .env file
// and MEDPREDICT_* environment variables, in increasing priority.
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
	"gopkg.in/yaml.v3"

	"github.com/abhisek/medpredict/internal/cache"
	"github.com/abhisek/medpredict/internal/diagnosis"
	"github.com/abhisek/medpredict/internal/eventbus"
)

// Config holds all runtime configuration.
type Config struct {
	// DB is a SQLite path or a postgres:// DSN. Empty means the default
	// per-user SQLite file.
	DB string `yaml:"db"`

	Redis RedisConfig `yaml:"redis"`
	NATS  NATSConfig  `yaml:"nats"`
	Model ModelConfig `yaml:"model"`
}

// RedisConfig enables the artifact cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // Default: 24h
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"` // Default: "medpredict.events"
}

// ModelConfig tunes training.
type ModelConfig struct {
	Key          string `yaml:"key"`           // Default: "disease_predictor"
	HistoryLimit int    `yaml:"history_limit"` // Default: 1000
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			TTL: cache.DefaultTTL,
		},
		NATS: NATSConfig{
			Subject: eventbus.DefaultSubject,
		},
		Model: ModelConfig{
			Key:          diagnosis.DefaultModelKey,
			HistoryLimit: diagnosis.MaxTrainingSubmissions,
		},
	}
}

// Load reads path (if non-empty), then ./.env, then the environment.
func Load(path string) (Config, error) {
	return LoadFiles(path, ".env")
}

// LoadFiles is Load with an explicit dotenv file. A missing dotenv file is
// ignored; a missing YAML file is an error.
func LoadFiles(path, envFile string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MEDPREDICT_DB"); v != "" {
		cfg.DB = v
	}

	if v := os.Getenv("MEDPREDICT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MEDPREDICT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MEDPREDICT_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEDPREDICT_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("MEDPREDICT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MEDPREDICT_CACHE_TTL: %w", err)
		}
		cfg.Redis.TTL = d
	}

	if v := os.Getenv("MEDPREDICT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("MEDPREDICT_NATS_SUBJECT"); v != "" {
		cfg.NATS.Subject = v
	}

	if v := os.Getenv("MEDPREDICT_MODEL_KEY"); v != "" {
		cfg.Model.Key = v
	}
	if v := os.Getenv("MEDPREDICT_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEDPREDICT_HISTORY_LIMIT: %w", err)
		}
		cfg.Model.HistoryLimit = n
	}
	return nil
}

// Validate checks value ranges and DSN schemes.
func (c Config) Validate() error {
	if i := strings.Index(c.DB, "://"); i >= 0 {
		switch c.DB[:i] {
		case "postgres", "postgresql":
		default:
			return fmt.Errorf("unsupported database scheme %q", c.DB[:i])
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis db must not be negative, got %d", c.Redis.DB)
	}
	if c.Model.HistoryLimit < 0 || c.Model.HistoryLimit > diagnosis.MaxTrainingSubmissions {
		return fmt.Errorf("model history_limit must be between 0 and %d, got %d",
			diagnosis.MaxTrainingSubmissions, c.Model.HistoryLimit)
	}
	if c.NATS.URL != "" && strings.TrimSpace(c.NATS.Subject) == "" {
		return fmt.Errorf("nats subject is required when nats url is set")
	}
	return nil
}

// CacheEnabled reports whether a Redis cache is configured.
func (c Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}

// EventsEnabled reports whether NATS publishing is configured.
func (c Config) EventsEnabled() bool {
	return c.NATS.URL != ""
}
