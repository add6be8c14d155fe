package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

const demoSubmissionKey = "settings:demo_submission_enabled"

// FlagStore holds the public demo-submission feature flag: one boolean
// under one key, no TTL, defaulting to enabled when never set.
type FlagStore struct {
	kv KV
}

// NewFlagStore returns a flag store over the given KV.
func NewFlagStore(kv KV) *FlagStore {
	return &FlagStore{kv: kv}
}

// DemoSubmissionEnabled reports whether public demo submission is enabled.
// An absent value means enabled.
func (f *FlagStore) DemoSubmissionEnabled(ctx context.Context) (bool, error) {
	raw, err := f.kv.Get(ctx, demoSubmissionKey)
	if errors.Is(err, ErrCacheMiss) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, fmt.Errorf("malformed demo submission flag %q: %w", raw, err)
	}
	return enabled, nil
}

// SetDemoSubmissionEnabled persists the flag with no expiry.
func (f *FlagStore) SetDemoSubmissionEnabled(ctx context.Context, enabled bool) error {
	return f.kv.Set(ctx, demoSubmissionKey, []byte(strconv.FormatBool(enabled)), 0)
}
