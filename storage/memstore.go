package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memFile struct {
	data     []byte
	modified time.Time
}

// MemStore is an in-memory FileStore used by tests and local development.
// Failure injection fields let tests exercise partial-failure paths.
type MemStore struct {
	mu    sync.Mutex
	files map[string]memFile

	// FailMove and FailDelete make the named source path fail.
	FailMove   map[string]error
	FailDelete map[string]error
	// ShareErr / TempErr fail every share or temp link call.
	ShareErr error
	TempErr  error

	// DownloadCalls counts Download invocations, letting tests assert
	// that a cache hit fetched no file content.
	DownloadCalls int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		files:      make(map[string]memFile),
		FailMove:   make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

// Put seeds a file with an explicit modification time.
func (m *MemStore) Put(path string, data []byte, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = memFile{data: data, modified: modified}
}

// Exists reports whether a path is present.
func (m *MemStore) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *MemStore) Download(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DownloadCalls++
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (m *MemStore) Upload(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path] = memFile{data: stored, modified: time.Now()}
	return nil
}

func (m *MemStore) Move(ctx context.Context, fromPath, toPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailMove[fromPath]; err != nil {
		return err
	}
	f, ok := m.files[fromPath]
	if !ok {
		return fmt.Errorf("%s: %w", fromPath, ErrNotFound)
	}
	m.files[toPath] = f
	delete(m.files, fromPath)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailDelete[path]; err != nil {
		return err
	}
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(m.files, path)
	return nil
}

func (m *MemStore) List(ctx context.Context, folder string) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimRight(folder, "/") + "/"

	var files []FileInfo
	for path, f := range m.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		name := strings.TrimPrefix(path, prefix)
		if strings.Contains(name, "/") {
			continue
		}
		files = append(files, FileInfo{
			Path:     path,
			Name:     name,
			Size:     int64(len(f.data)),
			Modified: f.modified,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (m *MemStore) ListPage(ctx context.Context, folder, cursor string, limit int) (ListPage, error) {
	files, err := m.List(ctx, folder)
	if err != nil {
		return ListPage{}, err
	}

	start := 0
	for start < len(files) && cursor != "" && files[start].Name <= cursor {
		start++
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

func (m *MemStore) ShareLink(ctx context.Context, path string) (string, error) {
	if m.ShareErr != nil {
		return "", m.ShareErr
	}
	if !m.Exists(path) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return "https://share.example" + path, nil
}

func (m *MemStore) TempLink(ctx context.Context, path string) (string, error) {
	if m.TempErr != nil {
		return "", m.TempErr
	}
	if !m.Exists(path) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return "https://tmp.example" + path, nil
}
