package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"TELEMETRY_FEED_URL", "TELEMETRY_CHAIN_GENESIS", "TELEMETRY_WARMUP",
	"OUTPUT_DIR", "OUTPUT_LATEST_NAME", "OUTPUT_ARCHIVE_PREFIX",
	"COLLECT_INTERVAL", "SQLITE_PATH", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.FeedURL != DefaultFeedURL {
		t.Errorf("FeedURL = %q", cfg.FeedURL)
	}
	if cfg.ChainGenesis != PolkadotGenesisHash {
		t.Errorf("ChainGenesis = %q", cfg.ChainGenesis)
	}
	if cfg.Warmup != 5*time.Second {
		t.Errorf("Warmup = %v", cfg.Warmup)
	}
	if cfg.CollectInterval != 5*time.Minute {
		t.Errorf("CollectInterval = %v", cfg.CollectInterval)
	}
	if cfg.OutputDir != "data" || cfg.LatestName != "nodes_latest.csv" || cfg.ArchivePrefix != "nodes_" {
		t.Errorf("output settings = %q %q %q", cfg.OutputDir, cfg.LatestName, cfg.ArchivePrefix)
	}
	if cfg.SQLitePath != "" || cfg.DatabaseURL != "" {
		t.Errorf("optional sinks enabled by default")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that exist, even empty ones.
	os.Unsetenv("TELEMETRY_WARMUP")
	os.Unsetenv("OUTPUT_DIR")
	os.Unsetenv("LOG_FORMAT")

	path := filepath.Join(t.TempDir(), ".env")
	content := "TELEMETRY_WARMUP=250ms\nOUTPUT_DIR=/tmp/out\nLOG_FORMAT=json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TELEMETRY_WARMUP")
		os.Unsetenv("OUTPUT_DIR")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Warmup != 250*time.Millisecond {
		t.Errorf("Warmup = %v", cfg.Warmup)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad warmup", "TELEMETRY_WARMUP", "soon", "TELEMETRY_WARMUP"},
		{"negative warmup", "TELEMETRY_WARMUP", "-1s", "Warmup"},
		{"zero interval", "COLLECT_INTERVAL", "0s", "CollectInterval"},
		{"genesis without prefix", "TELEMETRY_CHAIN_GENESIS", "91b171bb", "ChainGenesis"},
		{"latest not csv", "OUTPUT_LATEST_NAME", "latest.txt", "LatestName"},
		{"latest with path", "OUTPUT_LATEST_NAME", "a/latest.csv", "LatestName"},
		{"unknown level", "LOG_LEVEL", "trace", "LogLevel"},
		{"unknown format", "LOG_FORMAT", "xml", "LogFormat"},
		{"feed not url", "TELEMETRY_FEED_URL", "not a url", "FeedURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
