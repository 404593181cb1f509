package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist or has expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps every failure to reach the backing store.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the shared key-value store used across service replicas.
// Implementations must be safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Increment atomically adds one to key and returns the new count. ttl is
	// applied only when the increment creates the key.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetIndexed stores value under key and adds member to the index set in one
	// atomic step. The index TTL is extended to at least ttl.
	SetIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, index, member string) error
	// ReplaceExisting overwrites key with value, keeping its remaining TTL, and
	// removes member from index. It reports false when key no longer exists; the
	// index member is removed either way.
	ReplaceExisting(ctx context.Context, key string, value []byte, index, member string) (bool, error)
	SetMembers(ctx context.Context, index string) ([]string, error)
	SetRemove(ctx context.Context, index string, members ...string) error

	Ping(ctx context.Context) error
}
