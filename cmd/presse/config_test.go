package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WHAT: an absent config path yields pure defaults.
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Listen != ":8090" {
		t.Errorf("Listen = %q, want :8090", cfg.Listen)
	}
	if cfg.DBPath != "db/recipes.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// WHAT: YAML values override defaults, untouched fields keep them.
func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presse.yaml")
	data := []byte(`
listen: ":9000"
db_path: /var/lib/presse/recipes.db
browser:
  enabled: true
  pool_size: 2
  nav_timeout: 20s
ocr:
  base_url: http://ocr:8080
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if !cfg.Browser.Enabled || cfg.Browser.PoolSize != 2 {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Browser.NavTimeout != 20*time.Second {
		t.Errorf("NavTimeout = %v", cfg.Browser.NavTimeout)
	}
	if cfg.OCR.BaseURL != "http://ocr:8080" {
		t.Errorf("OCR.BaseURL = %q", cfg.OCR.BaseURL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default info", cfg.Log.Level)
	}
}

// WHAT: malformed YAML is an error, not a silent default config.
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen: [:::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("loadConfig() accepted malformed YAML")
	}
}
