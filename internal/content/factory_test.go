package content_test

import (
	"context"
	"testing"

	"pidvault/internal/config"
	"pidvault/internal/content"
)

func TestNewContentStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ContentConfig
		wantErr bool
	}{
		{name: "filesystem", cfg: config.ContentConfig{Type: "filesystem", Root: t.TempDir()}},
		{name: "memory", cfg: config.ContentConfig{Type: "memory"}},
		{name: "filesystem without root", cfg: config.ContentConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.ContentConfig{Type: "s3"}, wantErr: true},
		{name: "unknown", cfg: config.ContentConfig{Type: "ftp"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := content.NewContentStoreFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewContentStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
