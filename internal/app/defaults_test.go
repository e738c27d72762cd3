package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("ILM_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("ILM_HOME", "/custom/ilm")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/ilm" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/ilm")
		}
		if defaults["log_dir"] != "/custom/ilm/log" {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], "/custom/ilm/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("ILM_CONFIG_PATH", "")
		t.Setenv("ILM_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "ilm.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}
		wantBase := filepath.Join(homeDir, ".local", "share", "ilm")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := LoadEnv(); err != nil {
			t.Errorf("LoadEnv() error = %v", err)
		}
	})

	t.Run("reads ILM_HOME from .env", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ILM_HOME=/from/dotenv\n"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Chdir(dir)
		t.Setenv("ILM_HOME", "")
		os.Unsetenv("ILM_HOME")

		if err := LoadEnv(); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}
		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["base_dir"] != "/from/dotenv" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/from/dotenv")
		}
	})
}
