package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for pidvault.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Server     ServerConfig     `toml:"server"`
	Store      StoreConfig      `toml:"store"`
	Content    ContentConfig    `toml:"content"`
	Encryption EncryptionConfig `toml:"encryption"`
	Analysis   AnalysisConfig   `toml:"analysis"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Addr              string   `toml:"addr"`
	PublicBaseURL     string   `toml:"public_base_url"`    // prefix of FileRecord.url
	MaxUploadBytes    int64    `toml:"max_upload_bytes"`   // 0 means unlimited
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
}

// StoreConfig represents configuration for the metadata store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "json", "sqlite" or "memory"
	Path    string `toml:"path,omitempty"`     // only used for type=json
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ContentConfig represents configuration for the content store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ContentConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for content at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// AnalysisConfig points at the external document-analysis service.
type AnalysisConfig struct {
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	uploads := filepath.Join(baseDir, "uploads")
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Server: ServerConfig{
			Addr:              ":5000",
			PublicBaseURL:     "http://localhost:5000",
			ReadHeaderTimeout: Duration{5 * time.Second},
		},
		Store: StoreConfig{
			Type: "json",
			Path: filepath.Join(uploads, "metadata.json"),
		},
		Content: ContentConfig{
			Type: "filesystem",
			Root: uploads,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "pidvault.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "pidvault.key"),
		},
		Analysis: AnalysisConfig{
			Timeout: Duration{60 * time.Second},
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
func writeToFile(path string, cfg *Config) error {
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
