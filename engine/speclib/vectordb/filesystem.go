package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/specmatch/engine/speclib"
)

// fileStore is a memory index that snapshots itself to a JSON file after
// every mutation. Snapshots are written to a temp file and renamed in place.
type fileStore struct {
	*memoryStore
	path string
}

func newFileStore(cfg *Config) (*fileStore, error) {
	storePath := filepath.Clean(cfg.Path)
	dir := filepath.Dir(storePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("filesystem: ensure directory %q: %w", dir, err)
	}
	fs := &fileStore{memoryStore: newMemoryStore(cfg.Dimension), path: storePath}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *fileStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.mutate(func() (bool, error) {
		return true, s.upsertLocked(records)
	})
}

func (s *fileStore) Delete(_ context.Context, filter Filter) error {
	return s.mutate(func() (bool, error) {
		return s.deleteLocked(filter), nil
	})
}

func (s *fileStore) Reset(_ context.Context) error {
	return s.mutate(func() (bool, error) {
		s.resetLocked()
		return true, nil
	})
}

// mutate applies change and writes the snapshot. Memory is rolled back when
// either step fails, so it never holds contents the file does not.
func (s *fileStore) mutate(change func() (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.saveLocked()
	changed, err := change()
	if err != nil {
		s.restoreLocked(prev)
		return err
	}
	if !changed {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		s.restoreLocked(prev)
		return err
	}
	return nil
}

// Path returns the snapshot location.
func (s *fileStore) Path() string {
	return s.path
}

func (s *fileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filesystem: read %q: %w", s.path, err)
	}
	var payload snapshot
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("filesystem: decode %q: %w", s.path, err)
	}
	if payload.Dimension > 0 && payload.Dimension != s.dimension {
		return speclib.DimensionMismatch("open snapshot "+s.path, payload.Dimension, s.dimension)
	}
	for i := range payload.Records {
		rec := payload.Records[i]
		if len(rec.Embedding) != s.dimension {
			return speclib.DimensionMismatch("open snapshot record "+rec.ID, len(rec.Embedding), s.dimension)
		}
		s.entries[rec.ID] = &memoryEntry{
			record: Record{ID: rec.ID, Text: rec.Text, Embedding: rec.Embedding, Metadata: rec.Metadata},
			seq:    rec.Seq,
		}
		s.nextSeq = max(s.nextSeq, rec.Seq)
	}
	s.nextSeq = max(s.nextSeq, payload.NextSeq)
	return nil
}

func (s *fileStore) persistLocked() error {
	ordered := s.orderedLocked()
	payload := snapshot{
		Dimension: s.dimension,
		NextSeq:   s.nextSeq,
		Records:   make([]snapshotRecord, 0, len(ordered)),
	}
	for _, entry := range ordered {
		payload.Records = append(payload.Records, snapshotRecord{
			ID:        entry.record.ID,
			Seq:       entry.seq,
			Text:      entry.record.Text,
			Embedding: entry.record.Embedding,
			Metadata:  entry.record.Metadata,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("filesystem: encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("filesystem: commit snapshot: %w", err)
	}
	return nil
}

type snapshot struct {
	Dimension int              `json:"dimension"`
	NextSeq   int64            `json:"next_seq"`
	Records   []snapshotRecord `json:"records"`
}

type snapshotRecord struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
