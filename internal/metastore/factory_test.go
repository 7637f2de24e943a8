package metastore_test

import (
	"path/filepath"
	"testing"

	"pidvault/internal/config"
	"pidvault/internal/metastore"
)

func TestNewStoreFromConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{name: "json", cfg: config.StoreConfig{Type: "json", Path: filepath.Join(dir, "metadata.json")}},
		{name: "sqlite", cfg: config.StoreConfig{Type: "sqlite", DataDir: filepath.Join(dir, "db")}},
		{name: "memory", cfg: config.StoreConfig{Type: "memory"}},
		{name: "json without path", cfg: config.StoreConfig{Type: "json"}, wantErr: true},
		{name: "sqlite without data dir", cfg: config.StoreConfig{Type: "sqlite"}, wantErr: true},
		{name: "unknown", cfg: config.StoreConfig{Type: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := metastore.NewStoreFromConfig(tt.cfg, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
