// Package config loads the harness configuration: a YAML file with
// environment-variable overrides. Flags on the commands override both.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full harness configuration.
type Config struct {
	BaseURL string `yaml:"base_url"`
	Mode    string `yaml:"mode"`
	Query   string `yaml:"query"`

	Spreadsheet string `yaml:"spreadsheet"`
	Database    string `yaml:"database"`
	Model       string `yaml:"model"`

	ArtifactsDir string `yaml:"artifacts_dir"`
	Headless     bool   `yaml:"headless"`
	SlowMoMs     int    `yaml:"slow_mo_ms"`

	Timeouts Timeouts `yaml:"timeouts"`
}

// Timeouts overrides the UI wait classes. Zero values keep the defaults.
type Timeouts struct {
	ThinkingAppearMin int `yaml:"thinking_appear_min"`
	ThinkingClearMin  int `yaml:"thinking_clear_min"`
	FallbackSleepMin  int `yaml:"fallback_sleep_min"`
	CitationVisibleS  int `yaml:"citation_visible_s"`
}

// Default returns the built-in configuration matching the production
// BookGenie deployment.
func Default() Config {
	return Config{
		BaseURL:      "https://bookgenie.example.com",
		Mode:         "BookGenie",
		Query:        "suggest me some books like Animal Farm",
		Spreadsheet:  "testdata/expected_books.xlsx",
		Database:     "testdata/book_titles.xlsx",
		Model:        "gemini-2.5-pro",
		ArtifactsDir: "artifacts",
		Headless:     true,
	}
}

// Load reads the YAML file (when path is non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.BaseURL, "BOOKGENIE_BASE_URL")
	envString(&c.Mode, "BOOKGENIE_MODE")
	envString(&c.Query, "BOOKGENIE_QUERY")
	envString(&c.Spreadsheet, "BOOKGENIE_SPREADSHEET")
	envString(&c.Database, "BOOKGENIE_DATABASE")
	envString(&c.Model, "GEMINI_MODEL")
	envString(&c.ArtifactsDir, "BOOKGENIE_ARTIFACTS_DIR")
	if v := os.Getenv("BOOKGENIE_HEADLESS"); v != "" {
		c.Headless = v != "false" && v != "0"
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// SlowMo returns the per-action delay as a duration.
func (c Config) SlowMo() time.Duration {
	return time.Duration(c.SlowMoMs) * time.Millisecond
}
