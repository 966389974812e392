package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// FileStore is a Store backed by a JSON snapshot on disk. Reads are served
// from memory; every mutation rewrites the snapshot atomically (write to a
// temp file in the same directory, then rename).
type FileStore struct {
	mem    *MemoryStore
	path   string
	logger *zap.Logger
}

// fileSnapshot is the on-disk format.
type fileSnapshot struct {
	Version int              `json:"version"`
	Items   []*feedback.Item `json:"items"`
}

const snapshotVersion = 1

// NewFileStore opens or creates a store at path. An existing snapshot is
// loaded eagerly; items that fail validation are skipped with a warning
// rather than poisoning the whole store.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	fs := &FileStore{mem: NewMemoryStore(), path: path, logger: logger}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}

	ctx := context.Background()
	for _, it := range snap.Items {
		if err := s.mem.Put(ctx, it); err != nil {
			s.logger.Warn("skipping invalid item in snapshot",
				zap.String("id", it.ID),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("loaded feedback snapshot",
		zap.String("path", s.path),
		zap.Int("items", len(snap.Items)),
	)
	return nil
}

// persist writes the current state atomically.
func (s *FileStore) persist() error {
	snap := fileSnapshot{Version: snapshotVersion, Items: s.mem.snapshot()}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fusiond-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, item *feedback.Item) error {
	if err := s.mem.Put(ctx, item); err != nil {
		return err
	}
	return s.persist()
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (*feedback.Item, error) {
	return s.mem.Get(ctx, id)
}

// List implements Store.
func (s *FileStore) List(ctx context.Context, filter Filter) ([]*feedback.Item, error) {
	return s.mem.List(ctx, filter)
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := s.mem.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist()
}

// Count implements Store.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	return s.mem.Count(ctx)
}
