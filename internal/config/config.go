package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type LogConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

type StorageConfig struct {
	BaseDir      string   `json:"base_dir"`
	Mode         string   `json:"mode"`
	RoundFiles   bool     `json:"round_files"`
	FlushSignals []string `json:"flush_signals"`
	IndexPath    string   `json:"index_path"`
}

type ServerConfig struct {
	Addr           string `json:"addr"`
	AuthToken      string `json:"auth_token"`
	MinHostVersion string `json:"min_host_version"`
	DedupCacheSize int    `json:"dedup_cache_size"`
}

type Config struct {
	Log     LogConfig     `json:"log"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Storage.BaseDir == "" {
		return fmt.Errorf("validation error: storage.base_dir is required")
	}

	switch cfg.Storage.Mode {
	case "":
		cfg.Storage.Mode = "streaming"
	case "streaming", "batched":
	default:
		return fmt.Errorf("validation error: storage.mode must be streaming or batched, got %q", cfg.Storage.Mode)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8600"
	}
	if cfg.Server.DedupCacheSize < 0 {
		return fmt.Errorf("validation error: server.dedup_cache_size must not be negative")
	}

	return nil
}
