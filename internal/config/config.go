// Package config
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultFeedURL      = "wss://feed.telemetry.polkadot.io/feed/"
	PolkadotGenesisHash = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
)

type Config struct {
	FeedURL      string        `validate:"required,url"`
	ChainGenesis string        `validate:"required,startswith=0x,min=4"`
	Warmup       time.Duration `validate:"gte=0"`

	OutputDir     string `validate:"required"`
	LatestName    string `validate:"required,endswith=.csv,excludes=/"`
	ArchivePrefix string `validate:"excludes=/"`

	CollectInterval time.Duration `validate:"gt=0"`

	SQLitePath  string
	DatabaseURL string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Load reads envFile (if present) into the process environment and builds a
// validated Config from it. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		FeedURL:      getEnv("TELEMETRY_FEED_URL", DefaultFeedURL),
		ChainGenesis: strings.ToLower(getEnv("TELEMETRY_CHAIN_GENESIS", PolkadotGenesisHash)),

		OutputDir:     getEnv("OUTPUT_DIR", "data"),
		LatestName:    getEnv("OUTPUT_LATEST_NAME", "nodes_latest.csv"),
		ArchivePrefix: getEnv("OUTPUT_ARCHIVE_PREFIX", "nodes_"),

		SQLitePath:  os.Getenv("SQLITE_PATH"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.Warmup, err = getDuration("TELEMETRY_WARMUP", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CollectInterval, err = getDuration("COLLECT_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Field(), e.Tag()))
	}

	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}

	return d, nil
}
