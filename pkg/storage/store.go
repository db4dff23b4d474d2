// Package storage persists analysis artifacts. Runs land under a
// timestamped key and the newest run is mirrored at a stable key so
// renderers can poll one location.
package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	runPrefix = "runs/"
	latestKey = "latest.json"
)

// Store is the backend-neutral artifact store.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open picks a backend from the destination string. "s3://bucket/prefix"
// selects S3, anything else is a local directory.
func Open(ctx context.Context, dest string) (Store, error) {
	if rest, ok := strings.CutPrefix(dest, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("destination %q names no bucket", dest)
		}
		return openS3(ctx, bucket, prefix)
	}
	return NewLocalStore(dest), nil
}

// SaveRun writes one artifact under its timestamped run key and refreshes
// the latest pointer. The run key is returned for logging.
func SaveRun(ctx context.Context, s Store, data []byte, at time.Time) (string, error) {
	key := runPrefix + at.UTC().Format("20060102T150405Z") + ".json"
	if err := s.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("save run %s: %w", key, err)
	}
	if err := s.Put(ctx, latestKey, data); err != nil {
		return "", fmt.Errorf("update %s: %w", latestKey, err)
	}
	return key, nil
}

// Runs lists stored run keys, newest first.
func Runs(ctx context.Context, s Store) ([]string, error) {
	keys, err := s.List(ctx, runPrefix)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var out []string
	for _, k := range keys {
		if path.Ext(k) == ".json" {
			out = append(out, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Latest fetches the newest artifact bytes.
func Latest(ctx context.Context, s Store) ([]byte, error) {
	return s.Get(ctx, latestKey)
}
