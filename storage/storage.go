package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"demodesk/cache"
	"demodesk/config"
)

// ErrNotFound is returned when a path does not exist in the file store.
var ErrNotFound = errors.New("storage: file not found")

// FileInfo describes one stored file.
type FileInfo struct {
	Path     string
	Name     string
	Size     int64
	Modified time.Time
}

// ListPage is one page of a paginated folder listing.
type ListPage struct {
	Files   []FileInfo
	Cursor  string
	HasMore bool
}

// FileStore is the file-storage provider surface the dashboard needs.
// Two drivers exist: the Dropbox REST API and a self-hosted MinIO bucket.
type FileStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte) error
	Move(ctx context.Context, fromPath, toPath string) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, folder string) ([]FileInfo, error)
	ListPage(ctx context.Context, folder, cursor string, limit int) (ListPage, error)
	// ShareLink returns an existing shared link for path, creating one if
	// none exists yet.
	ShareLink(ctx context.Context, path string) (string, error)
	// TempLink returns a short-lived direct link, the fallback when shared
	// links are unavailable.
	TempLink(ctx context.Context, path string) (string, error)
}

// New builds the configured FileStore driver. The KV backs the Dropbox
// access-token cache and is unused by the MinIO driver.
func New(cfg *config.Config, kv cache.KV) (FileStore, error) {
	switch cfg.StorageDriver {
	case "dropbox":
		return NewDropboxStore(cfg, kv), nil
	case "minio":
		return NewMinioStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
