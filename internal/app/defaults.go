package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths used when no flag or config value says otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// LoadDefaults resolves default paths. PIDVAULT_CONFIG_PATH overrides
// ~/.config/pidvault.toml and PIDVAULT_HOME overrides ~/.local/share/pidvault.
func LoadDefaults() (Defaults, error) {
	configPath := os.Getenv("PIDVAULT_CONFIG_PATH")
	baseDir := os.Getenv("PIDVAULT_HOME")

	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "pidvault.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "pidvault")
		}
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
