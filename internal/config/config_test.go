package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileOverEnvOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	data := []byte("base_url: https://staging.example.com\nmode: Chat Mode\nheadless: false\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOOKGENIE_QUERY", "books about beekeeping")
	t.Setenv("BOOKGENIE_BASE_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://staging.example.com" {
		t.Errorf("file value not applied: %q", cfg.BaseURL)
	}
	if cfg.Query != "books about beekeeping" {
		t.Errorf("env override not applied: %q", cfg.Query)
	}
	if cfg.Headless {
		t.Error("headless should be false from file")
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("default not preserved: %q", cfg.Model)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("missing config file must error")
	}
}

func TestHeadlessEnvOverride(t *testing.T) {
	t.Setenv("BOOKGENIE_HEADLESS", "false")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Headless {
		t.Error("BOOKGENIE_HEADLESS=false must disable headless")
	}
}
