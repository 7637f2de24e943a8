package content

import (
	"context"
	"fmt"

	"pidvault/internal/config"
	"pidvault/internal/docs"
)

// NewContentStoreFromConfig creates a ContentStore based on the content config
// type. ignore patterns only apply to the filesystem backend.
func NewContentStoreFromConfig(ctx context.Context, cfg config.ContentConfig, ignore ...string) (docs.ContentStore, error) {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.Root == "" {
			return nil, fmt.Errorf("root required for filesystem content store")
		}
		return NewFileSystemStore(cfg.Root, ignore...)
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown content type: %s", cfg.Type)
	}
}
