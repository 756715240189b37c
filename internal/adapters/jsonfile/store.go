// Package jsonfile persists each collection as one pretty-printed JSON array
// under <dataDir>/db, the layout the application shares with other devices
// through the sync engine rather than through the files themselves.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

const (
	dbDir     = "db"
	imagesDir = "images"
)

type Store struct {
	dataDir string
	log     zerolog.Logger

	mu    sync.Mutex
	locks map[domain.Collection]*sync.Mutex
}

func New(dataDir string, log zerolog.Logger) *Store {
	return &Store{
		dataDir: dataDir,
		log:     log,
		locks:   make(map[domain.Collection]*sync.Mutex),
	}
}

// Load returns the decoded collection, an empty slice when the file does not
// exist yet, or an error wrapping domain.ErrCorruptStore when it exists but
// cannot be decoded. Unreadable data is never masked as "no data".
func (s *Store) Load(ctx context.Context, c domain.Collection) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := domain.ValidateCollection(c); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.collectionPath(c))
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, c, err)
	}
	return records, nil
}

// Save atomically replaces the whole collection file. The new content lands
// in a temp file first and is renamed into place, so a concurrent reader
// never observes a partial write and a failed write leaves the previous file
// untouched.
func (s *Store) Save(ctx context.Context, c domain.Collection, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := domain.ValidateCollection(c); err != nil {
		return err
	}
	if records == nil {
		records = []json.RawMessage{}
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}

	lock := s.collectionLock(c)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.dataDir, dbDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, string(c)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", c, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", c, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c, err)
	}
	if err := os.Rename(tmpName, s.collectionPath(c)); err != nil {
		return fmt.Errorf("replace %s: %w", c, err)
	}
	return nil
}

// Reset removes every collection file and portrait sidecar. The only
// physical deletion path; everything else is a tombstone.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dataDir, dbDir)); err != nil {
		return fmt.Errorf("remove db dir: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(s.dataDir, imagesDir)); err != nil {
		return fmt.Errorf("remove images dir: %w", err)
	}
	s.log.Info().Str("dir", s.dataDir).Msg("local data removed")
	return nil
}

// SaveImage stores a portrait next to the collections and returns its path.
func (s *Store) SaveImage(ctx context.Context, id string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.dataDir, imagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", id, time.Now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func (s *Store) collectionPath(c domain.Collection) string {
	return filepath.Join(s.dataDir, dbDir, string(c)+".json")
}

func (s *Store) collectionLock(c domain.Collection) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[c]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[c] = lock
	}
	return lock
}

var (
	_ ports.CollectionStore = (*Store)(nil)
	_ ports.ImageStore      = (*Store)(nil)
)
