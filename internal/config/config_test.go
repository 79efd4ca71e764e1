package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hooktrail.config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"storage":{"base_dir":"/var/log/hooktrail"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Mode != "streaming" {
		t.Fatalf("default mode = %q, want streaming", cfg.Storage.Mode)
	}
	if cfg.Server.Addr != ":8600" {
		t.Fatalf("default addr = %q, want :8600", cfg.Server.Addr)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"log": {"level": "debug", "development": true},
		"storage": {
			"base_dir": "/data/logs",
			"mode": "batched",
			"round_files": true,
			"flush_signals": ["idle", "end", "compaction"],
			"index_path": "/data/index.db"
		},
		"server": {
			"addr": ":9000",
			"auth_token": "secret",
			"min_host_version": "2.1.0",
			"dedup_cache_size": 500
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Mode != "batched" || !cfg.Storage.RoundFiles {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if len(cfg.Storage.FlushSignals) != 3 {
		t.Fatalf("flush signals = %v", cfg.Storage.FlushSignals)
	}
	if cfg.Server.MinHostVersion != "2.1.0" || cfg.Server.DedupCacheSize != 500 {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestLoadRejectsMissingBaseDir(t *testing.T) {
	path := writeConfig(t, `{"storage":{"mode":"streaming"}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing base_dir")
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, `{"storage":{"base_dir":"/x","mode":"adaptive"}}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
