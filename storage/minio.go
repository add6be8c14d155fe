package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"demodesk/config"
	"demodesk/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements FileStore over a MinIO bucket, the self-hosted
// alternative to Dropbox. Presigned URLs stand in for shared links.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("[MinIO] created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// objectKey maps a Dropbox-style absolute path to an object key.
func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

func mapMinioErr(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject") {
		return fmt.Errorf("%s: %w", resp.Key, ErrNotFound)
	}
	return err
}

func (m *MinioStore) Download(ctx context.Context, path string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, objectKey(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, mapMinioErr(err)
	}
	return data, nil
}

func (m *MinioStore) Upload(ctx context.Context, path string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectKey(path), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

// Move is a server-side copy followed by a delete; MinIO has no rename.
func (m *MinioStore) Move(ctx context.Context, fromPath, toPath string) error {
	src := minio.CopySrcOptions{Bucket: m.bucket, Object: objectKey(fromPath)}
	dst := minio.CopyDestOptions{Bucket: m.bucket, Object: objectKey(toPath)}
	if _, err := m.client.CopyObject(ctx, dst, src); err != nil {
		return mapMinioErr(err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey(fromPath), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("copied %s but failed to remove source: %w", fromPath, err)
	}
	return nil
}

func (m *MinioStore) Delete(ctx context.Context, path string) error {
	// RemoveObject succeeds for absent keys; stat first so callers see
	// the same not-found behavior as the Dropbox driver.
	if _, err := m.client.StatObject(ctx, m.bucket, objectKey(path), minio.StatObjectOptions{}); err != nil {
		return mapMinioErr(err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey(path), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (m *MinioStore) List(ctx context.Context, folder string) ([]FileInfo, error) {
	prefix := objectKey(strings.TrimRight(folder, "/")) + "/"

	var files []FileInfo
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", folder, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		files = append(files, FileInfo{
			Path:     "/" + object.Key,
			Name:     object.Key[strings.LastIndex(object.Key, "/")+1:],
			Size:     object.Size,
			Modified: object.LastModified,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ListPage pages through a folder using the last returned name as
// the cursor.
func (m *MinioStore) ListPage(ctx context.Context, folder, cursor string, limit int) (ListPage, error) {
	files, err := m.List(ctx, folder)
	if err != nil {
		return ListPage{}, err
	}

	start := 0
	if cursor != "" {
		for i, f := range files {
			if f.Name > cursor {
				start = i
				break
			}
			start = i + 1
		}
	}
	files = files[start:]

	page := ListPage{}
	if limit > 0 && len(files) > limit {
		page.Files = files[:limit]
		page.Cursor = page.Files[len(page.Files)-1].Name
		page.HasMore = true
	} else {
		page.Files = files
	}
	return page, nil
}

// ShareLink presigns a long-lived GET URL; MinIO keeps no shared-link
// registry, so every call produces a fresh link.
func (m *MinioStore) ShareLink(ctx context.Context, path string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey(path), 7*24*time.Hour, url.Values{})
	if err != nil {
		return "", mapMinioErr(err)
	}
	return u.String(), nil
}

// TempLink presigns a short-lived GET URL.
func (m *MinioStore) TempLink(ctx context.Context, path string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey(path), 4*time.Hour, url.Values{})
	if err != nil {
		return "", mapMinioErr(err)
	}
	return u.String(), nil
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(path, ".wav"):
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
