package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"demodesk/logger"

	"github.com/fsnotify/fsnotify"
)

// Staff roles recognized by the allow-list.
const (
	RoleAssistant = "assistant"
	RoleOwner     = "owner"
)

// Allowlist maps allow-listed staff email addresses to their role.
// The backing file has one entry per line: "email role", with '#' comments.
// It is reloaded automatically when the file changes.
type Allowlist struct {
	path string

	mu    sync.RWMutex
	roles map[string]string

	watcher *fsnotify.Watcher
}

// LoadAllowlist reads the allow-list file at path.
func LoadAllowlist(path string) (*Allowlist, error) {
	a := &Allowlist{path: path}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-reads the backing file, replacing the in-memory set.
func (a *Allowlist) Reload() error {
	f, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("failed to open allowlist %s: %w", a.path, err)
	}
	defer f.Close()

	roles := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return fmt.Errorf("allowlist %s line %d: expected \"email role\"", a.path, line)
		}
		email := strings.ToLower(fields[0])
		role := strings.ToLower(fields[1])
		if role != RoleAssistant && role != RoleOwner {
			return fmt.Errorf("allowlist %s line %d: unknown role %q", a.path, line, role)
		}
		roles[email] = role
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read allowlist %s: %w", a.path, err)
	}

	a.mu.Lock()
	a.roles = roles
	a.mu.Unlock()
	return nil
}

// Role returns the role for an email and whether the email is allow-listed.
func (a *Allowlist) Role(email string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	role, ok := a.roles[strings.ToLower(strings.TrimSpace(email))]
	return role, ok
}

// Len returns the number of allow-listed emails.
func (a *Allowlist) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.roles)
}

// Watch reloads the allow-list whenever the backing file changes, so staff
// can be added without a restart. Editors replace files rather than write
// them in place, so the parent directory is watched.
func (a *Allowlist) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create allowlist watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(a.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch allowlist dir: %w", err)
	}
	a.watcher = watcher

	go func() {
		base := filepath.Base(a.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := a.Reload(); err != nil {
					logger.Warn("[Allowlist] reload after change failed", logger.ErrorField(err))
					continue
				}
				logger.Info("[Allowlist] reloaded", logger.Int("entries", a.Len()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("[Allowlist] watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

// Close stops the file watcher if one is running.
func (a *Allowlist) Close() error {
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}
