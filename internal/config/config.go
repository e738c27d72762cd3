package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ilm.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	SlugIndex  SlugIndexConfig  `toml:"slug_index"`
	Search     SearchConfig     `toml:"search"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Allocator  AllocatorConfig  `toml:"allocator"`
	Versioning VersioningConfig `toml:"versioning"`
	Hierarchy  HierarchyConfig  `toml:"hierarchy"`
}

// DatabaseConfig selects the node store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "postgres"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty"`      // only used for type=postgres
}

// SlugIndexConfig selects where slug reservations are made.
type SlugIndexConfig struct {
	Type      string `toml:"type"`                 // "database" (default), "redis", "memory" or "none"
	RedisURL  string `toml:"redis_url,omitempty"`  // only used for type=redis
	KeyPrefix string `toml:"key_prefix,omitempty"` // only used for type=redis
}

// SearchConfig selects the search backend.
type SearchConfig struct {
	Type        string `toml:"type"` // "database" (default), "meilisearch" or "none"
	MeiliURL    string `toml:"meili_url,omitempty"`
	MeiliAPIKey string `toml:"meili_api_key,omitempty"`
	IndexName   string `toml:"index_name,omitempty"`
	Workers     int    `toml:"workers,omitempty"`    // async indexing workers; 0 indexes inline
	QueueSize   int    `toml:"queue_size,omitempty"` // pending index jobs before submitters block
}

// VaultConfig represents configuration for an archive vault.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	Armor          bool   `toml:"armor,omitempty"` // PEM-style ASCII output for archives
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	Type           string `toml:"type"` // "none" (default) or "jaeger"
	ServiceName    string `toml:"service_name,omitempty"`
	JaegerEndpoint string `toml:"jaeger_endpoint,omitempty"`
}

// AllocatorConfig bounds slug allocation. Zero values take the defaults.
type AllocatorConfig struct {
	SeededAttempts   int `toml:"seeded_attempts,omitempty"`
	UnseededAttempts int `toml:"unseeded_attempts,omitempty"`
	MaxLength        int `toml:"max_length,omitempty"`
}

// VersioningConfig tunes the version engine.
type VersioningConfig struct {
	DiffMode      string `toml:"diff_mode,omitempty"` // "positional" (default) or "aligned"
	CommitRetries int    `toml:"commit_retries,omitempty"`
}

// HierarchyConfig tunes the hierarchy engine.
type HierarchyConfig struct {
	// AllowSubtreeMoves permits moving nodes that have descendants. Unset means true.
	AllowSubtreeMoves *bool `toml:"allow_subtree_moves,omitempty"`
}

// SubtreeMovesAllowed resolves the unset default.
func (h HierarchyConfig) SubtreeMovesAllowed() bool {
	return h.AllowSubtreeMoves == nil || *h.AllowSubtreeMoves
}

// NewConfig creates a new Config with the provided values and defaults for a
// single-host installation: a SQLite store under baseDir, slugs reserved in
// the database and store-backed search.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		SlugIndex: SlugIndexConfig{Type: "database"},
		Search:    SearchConfig{Type: "database"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "ilm.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "ilm.key"),
		},
		Telemetry:  TelemetryConfig{Type: "none"},
		Versioning: VersioningConfig{DiffMode: "positional"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
