// Package cache remembers small facts between runs.
//
// The download strategies use it to record which mirror last produced a
// working archive for each library, so the next run tries that URL first.
// Entries are plain bytes; callers pick the encoding.
//
// Two implementations are provided:
//
//   - [FileCache]: JSON entry files under a directory, with optional TTL
//   - [NullCache]: stores nothing, for tests and --no-cache runs
//
// [NewScoped] prefixes keys so unrelated users of one cache never collide.
// Every FileCache lookup is reported to observability.Cache(), keyed by the
// part of the key before the first colon ("mirror" for "mirror:zlib").
package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache stores byte values by key.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// MirrorPrefix namespaces the remembered download URL of each library.
const MirrorPrefix = "mirror:"

// Dir returns the cache directory for a build tree rooted at root. With an
// empty root it falls back to the user cache directory.
func Dir(root string) (string, error) {
	if root != "" {
		return filepath.Join(root, ".phpbuilder", "cache"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "phpbuilder"), nil
}

func keyType(key string) string {
	if t, _, ok := strings.Cut(key, ":"); ok {
		return t
	}
	return "other"
}
