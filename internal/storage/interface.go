package storage

import (
	"context"
	"fmt"
	"io"

	"juku-import/internal/config"
)

type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New returns the storage driver selected in config.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Storage(cfg)
	case "local":
		return NewLocalStorage(cfg.Storage.Local.Dir)
	}
	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}
