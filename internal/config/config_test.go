package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	moves := false
	original := &Config{
		HostID:  "test-host-abc",
		BaseDir: "/home/user/.local/share/ilm",
		LogDir:  "/home/user/.local/share/ilm/log",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "/home/user/.local/share/ilm/db",
		},
		SlugIndex: SlugIndexConfig{Type: "redis", RedisURL: "redis://localhost:6379/0", KeyPrefix: "ilm:slug:"},
		Search:    SearchConfig{Type: "meilisearch", MeiliURL: "http://localhost:7700", Workers: 2},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "offsite", S3Bucket: "ilm-archives", S3Region: "eu-west-1"},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/ilm/keys/ilm.pub",
			PrivateKeyPath: "/home/user/.local/share/ilm/keys/ilm.key",
		},
		Telemetry:  TelemetryConfig{Type: "jaeger", JaegerEndpoint: "http://localhost:14268/api/traces"},
		Allocator:  AllocatorConfig{SeededAttempts: 50},
		Versioning: VersioningConfig{DiffMode: "aligned", CommitRetries: 8},
		Hierarchy:  HierarchyConfig{AllowSubtreeMoves: &moves},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.SlugIndex != original.SlugIndex {
		t.Errorf("SlugIndex = %+v, want %+v", got.SlugIndex, original.SlugIndex)
	}
	if got.Search != original.Search {
		t.Errorf("Search = %+v, want %+v", got.Search, original.Search)
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vaults[0].FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Vaults[1].S3Bucket != "ilm-archives" {
		t.Errorf("Vaults[1].S3Bucket = %q, want %q", got.Vaults[1].S3Bucket, "ilm-archives")
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.Telemetry != original.Telemetry {
		t.Errorf("Telemetry = %+v, want %+v", got.Telemetry, original.Telemetry)
	}
	if got.Allocator.SeededAttempts != 50 {
		t.Errorf("Allocator.SeededAttempts = %d, want 50", got.Allocator.SeededAttempts)
	}
	if got.Versioning != original.Versioning {
		t.Errorf("Versioning = %+v, want %+v", got.Versioning, original.Versioning)
	}
	if got.Hierarchy.SubtreeMovesAllowed() {
		t.Error("Hierarchy.SubtreeMovesAllowed() = true, want false")
	}
}

func TestHierarchyConfig_SubtreeMovesAllowed(t *testing.T) {
	t.Run("unset defaults to true", func(t *testing.T) {
		cfg, err := (&Manager{}).Read(strings.NewReader("[hierarchy]\n"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !cfg.Hierarchy.SubtreeMovesAllowed() {
			t.Error("SubtreeMovesAllowed() = false, want true")
		}
	})

	t.Run("explicit false", func(t *testing.T) {
		cfg, err := (&Manager{}).Read(strings.NewReader("[hierarchy]\nallow_subtree_moves = false\n"))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if cfg.Hierarchy.SubtreeMovesAllowed() {
			t.Error("SubtreeMovesAllowed() = true, want false")
		}
	})
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/ilm")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.LogDir != "/data/ilm/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/ilm/log")
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != "/data/ilm/db" {
		t.Errorf("Database = %+v, want sqlite under /data/ilm/db", cfg.Database)
	}
	if cfg.SlugIndex.Type != "database" {
		t.Errorf("SlugIndex.Type = %q, want %q", cfg.SlugIndex.Type, "database")
	}
	if cfg.Encryption.PublicKeyPath != "/data/ilm/keys/ilm.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/ilm/keys/ilm.pub")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/ilm/keys/ilm.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", cfg.Encryption.PrivateKeyPath, "/data/ilm/keys/ilm.key")
	}
	if !cfg.Hierarchy.SubtreeMovesAllowed() {
		t.Error("Hierarchy.SubtreeMovesAllowed() = false, want true")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ilm.toml")

		if err := Init(path, NewConfig("h1", dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ilm.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ilm.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/ilm.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
