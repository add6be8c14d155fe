package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"demodesk/model"
)

const demoCacheKey = "demos:snapshot"

// Snapshot is the cached combined demo listing: every demo across the four
// status folders plus a per-folder content digest and a fetch timestamp.
type Snapshot struct {
	Demos     []model.Demo      `json:"demos"`
	Digests   map[string]string `json:"digests"` // status -> folder digest
	FetchedAt time.Time         `json:"fetched_at"`
}

// Fresh reports whether the snapshot is younger than maxAge.
func (s *Snapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.FetchedAt) < maxAge
}

// Matches reports whether every folder digest matches the given set. Any
// mismatch, including a folder absent from either side, forces a refetch.
func (s *Snapshot) Matches(digests map[string]string) bool {
	if len(s.Digests) != len(digests) {
		return false
	}
	for status, digest := range digests {
		if s.Digests[status] != digest {
			return false
		}
	}
	return true
}

// DemoCache holds the combined demo listing under a single key with a
// fixed expiry.
type DemoCache struct {
	kv  KV
	ttl time.Duration
}

// NewDemoCache returns a demo cache with the given freshness window.
func NewDemoCache(kv KV, ttl time.Duration) *DemoCache {
	return &DemoCache{kv: kv, ttl: ttl}
}

// TTL returns the configured freshness window.
func (c *DemoCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached snapshot, or ErrCacheMiss.
func (c *DemoCache) Get(ctx context.Context) (*Snapshot, error) {
	raw, err := c.kv.Get(ctx, demoCacheKey)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal demo snapshot: %w", err)
	}
	return &snap, nil
}

// Put stores a snapshot wholesale.
func (c *DemoCache) Put(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal demo snapshot: %w", err)
	}
	return c.kv.Set(ctx, demoCacheKey, raw, c.ttl)
}

// PatchStatus updates a single demo's status in place and merges refreshed
// folder digests, avoiding a full refetch after a move. The snapshot's
// FetchedAt is preserved. Returns ErrCacheMiss when nothing is cached.
func (c *DemoCache) PatchStatus(ctx context.Context, demoID, status string, digests map[string]string) error {
	snap, err := c.Get(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range snap.Demos {
		if snap.Demos[i].ID == demoID {
			snap.Demos[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("demo %s not present in cached snapshot", demoID)
	}

	if snap.Digests == nil {
		snap.Digests = make(map[string]string)
	}
	for folder, digest := range digests {
		snap.Digests[folder] = digest
	}

	return c.Put(ctx, snap)
}

// Invalidate drops the cached snapshot wholesale.
func (c *DemoCache) Invalidate(ctx context.Context) error {
	return c.kv.Delete(ctx, demoCacheKey)
}
