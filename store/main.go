// Package store implements the bounded local state collections kept by the
// alert agent: the alert feed, the seen-id ledger, the watermark, the viewed
// feed and the alert preference. Every collection is persisted as a whole-value
// snapshot and mutated read-modify-write through the typed stores in this
// package; nothing else touches the persisted state directly.
package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithFields(logrus.Fields{"package": "store"})

// Logical state keys. Each key is persisted independently so that corruption of
// one snapshot never affects the others.
const (
	KeyAlertPreference = "alert_pref"
	KeyAlertFeed       = "alert_feed"
	KeySeenIDs         = "seen_ids"
	KeyWatermark       = "watermark"
	KeyViewedFeed      = "viewed"
)

// Backend persists opaque state snapshots keyed by name. Load returns a nil
// slice without an error when no snapshot exists for the key. Save atomically
// replaces the previous snapshot.
type Backend interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// FileBackend stores each snapshot as a JSON file under a single directory,
// replacing files atomically via a temporary file and rename.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file-backed state store rooted at the given directory.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Load reads the snapshot for a key. A missing file is reported as an absent
// snapshot, not an error.
func (b *FileBackend) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "unable to load the `%s` state", key)
	}
	return data, nil
}

// Save atomically replaces the snapshot for a key.
func (b *FileBackend) Save(key string, data []byte) error {
	wrapMsg := "unable to save the `" + key + "` state"

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	path := b.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// MemoryBackend keeps snapshots in memory. It is used in tests and anywhere the
// agent runs without a writable data directory.
type MemoryBackend struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

// NewMemoryBackend creates an empty in-memory state store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snapshots: make(map[string][]byte)}
}

// Load reads the snapshot for a key.
func (b *MemoryBackend) Load(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.snapshots[key]
	if !ok {
		return nil, nil
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Save replaces the snapshot for a key.
func (b *MemoryBackend) Save(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	b.snapshots[key] = copied
	return nil
}
