package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name       string
		configPath string
		home       string
		want       Defaults
	}{
		{
			name:       "env overrides both",
			configPath: "/custom/config.toml",
			home:       "/custom/pidvault",
			want:       Defaults{ConfigPath: "/custom/config.toml", BaseDir: "/custom/pidvault", LogDir: "/custom/pidvault/log"},
		},
		{
			name: "home dir fallbacks",
			want: Defaults{
				ConfigPath: filepath.Join(home, ".config", "pidvault.toml"),
				BaseDir:    filepath.Join(home, ".local", "share", "pidvault"),
				LogDir:     filepath.Join(home, ".local", "share", "pidvault", "log"),
			},
		},
		{
			name: "only base dir overridden",
			home: "/srv/pidvault",
			want: Defaults{
				ConfigPath: filepath.Join(home, ".config", "pidvault.toml"),
				BaseDir:    "/srv/pidvault",
				LogDir:     "/srv/pidvault/log",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PIDVAULT_CONFIG_PATH", tt.configPath)
			t.Setenv("PIDVAULT_HOME", tt.home)

			got, err := LoadDefaults()
			if err != nil {
				t.Fatalf("LoadDefaults() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
