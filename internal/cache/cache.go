// Package cache provides the key/value store used for refinement results,
// retailer tokens and rate limit counters.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a string key/value store with expiry
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr increments a counter and sets its expiry, returning the new value
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Delete removes a key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes a cached JSON value into out
func GetJSON(ctx context.Context, s Store, key string, out interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode cached value %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v encoded as JSON
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw), ttl)
}
