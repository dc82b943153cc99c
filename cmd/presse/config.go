package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration for the presse binary.
type fileConfig struct {
	Listen  string        `yaml:"listen"`
	DBPath  string        `yaml:"db_path"`
	Catalog string        `yaml:"catalog"`
	Browser browserConfig `yaml:"browser"`
	OCR     ocrConfig     `yaml:"ocr"`
	Fetch   fetchConfig   `yaml:"fetch"`
	API     apiConfig     `yaml:"api"`
	Log     logConfig     `yaml:"log"`
}

type browserConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Remote     string        `yaml:"remote"`
	PoolSize   int           `yaml:"pool_size"`
	NavTimeout time.Duration `yaml:"nav_timeout"`
}

type ocrConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
}

type fetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

type apiConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type logConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// loadConfig reads a YAML file when path is non-empty, then applies
// defaults. A missing path yields a pure-defaults config.
func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *fileConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":" + env("PORT", "8090")
	}
	if c.DBPath == "" {
		c.DBPath = env("DB_PATH", "db/recipes.db")
	}
	if c.Catalog == "" {
		c.Catalog = env("CATALOG_PATH", "")
	}
	if c.Log.Level == "" {
		c.Log.Level = env("LOG_LEVEL", "info")
	}
	if c.OCR.BaseURL == "" {
		c.OCR.BaseURL = env("OCR_URL", "")
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
