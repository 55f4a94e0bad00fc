package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ta.
type Config struct {
	AccountID  string           `toml:"account_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Auth       AuthConfig       `toml:"auth"`
	Remotes    []RemoteConfig   `toml:"remotes"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Sync       SyncConfig       `toml:"sync"`
}

// AuthConfig holds the active provider and its bearer token. The token is an
// opaque credential obtained out of band (OAuth device flow, personal access
// token); ta never runs an OAuth flow itself.
type AuthConfig struct {
	Provider string `toml:"provider"` // "drive", "gist", or "s3"
	Token    string `toml:"token"`
}

// EncryptionConfig selects the payload cipher. An empty passphrase disables
// encryption entirely: the snapshot is stored as plaintext JSON in the
// remote blob. That is a deliberate trade-off, not a bug.
type EncryptionConfig struct {
	Type       string `toml:"type"` // "aes" (default), "age", or "test"
	Passphrase string `toml:"passphrase,omitempty"`
}

// RemoteConfig represents configuration for a remote backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "drive", "gist", "s3", or "memory"

	// Gist-specific fields (only used when Type == "gist")
	GistID string `toml:"gist_id,omitempty"` // cached explicit gist id, optional

	// Drive/gist API base URL override, used by tests. Empty means the
	// provider's public endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// DatabaseConfig represents configuration for the local entity database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// SyncConfig holds sync scheduling knobs. Zero values fall back to the
// defaults in the ta package.
type SyncConfig struct {
	DebounceMs       int64 `toml:"debounce_ms"`        // quiet period before a scheduled upload
	LoginThresholdMs int64 `toml:"login_threshold_ms"` // remote-authoritative cutoff at login
}

// NewConfig creates a new Config with the provided values and defaults.
func NewConfig(accountID, baseDir string) *Config {
	return &Config{
		AccountID: accountID,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Encryption: EncryptionConfig{
			Type: "aes",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
