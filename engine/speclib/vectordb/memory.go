package vectordb

import (
	"context"
	"sort"
	"sync"

	"github.com/compozy/specmatch/engine/core"
	"github.com/compozy/specmatch/engine/speclib"
)

type memoryEntry struct {
	record Record
	seq    int64
}

// memoryStore is an exact brute-force cosine index held in process memory.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*memoryEntry
	nextSeq   int64
}

func newMemoryStore(dimension int) *memoryStore {
	return &memoryStore{dimension: dimension, entries: make(map[string]*memoryEntry)}
}

func (s *memoryStore) Dimension() int {
	return s.dimension
}

func (s *memoryStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(records)
}

func (s *memoryStore) upsertLocked(records []Record) error {
	for i := range records {
		if len(records[i].Embedding) != s.dimension {
			return speclib.DimensionMismatch("upsert "+records[i].ID, len(records[i].Embedding), s.dimension)
		}
	}
	for i := range records {
		rec := records[i]
		stored := Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		}
		if existing, ok := s.entries[rec.ID]; ok {
			existing.record = stored
			continue
		}
		s.nextSeq++
		s.entries[rec.ID] = &memoryEntry{record: stored, seq: s.nextSeq}
	}
	return nil
}

func (s *memoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != s.dimension {
		return nil, speclib.DimensionMismatch("search", len(query), s.dimension)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0, len(s.entries))
	for _, entry := range s.entries {
		if !metadataMatches(entry.record.Metadata, opts.Filters) {
			continue
		}
		score := cosineSimilarity(entry.record.Embedding, query)
		if score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Match{
			ID:       entry.record.ID,
			Score:    score,
			Text:     entry.record.Text,
			Metadata: core.CloneMap(entry.record.Metadata),
			Seq:      entry.seq,
		})
	}
	return rankMatches(candidates, opts.TopK), nil
}

func (s *memoryStore) Delete(_ context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(filter)
	return nil
}

func (s *memoryStore) deleteLocked(filter Filter) bool {
	changed := false
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			if _, ok := s.entries[id]; ok {
				delete(s.entries, id)
				changed = true
			}
		}
		return changed
	}
	if len(filter.Metadata) == 0 {
		return false
	}
	for id, entry := range s.entries {
		if metadataMatches(entry.record.Metadata, filter.Metadata) {
			delete(s.entries, id)
			changed = true
		}
	}
	return changed
}

func (s *memoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}

// memoryState is a point-in-time copy of the index contents.
type memoryState struct {
	entries map[string]memoryEntry
	nextSeq int64
}

// saveLocked copies entries by value because upserts overwrite records in place.
func (s *memoryStore) saveLocked() memoryState {
	st := memoryState{entries: make(map[string]memoryEntry, len(s.entries)), nextSeq: s.nextSeq}
	for id, entry := range s.entries {
		st.entries[id] = *entry
	}
	return st
}

func (s *memoryStore) restoreLocked(st memoryState) {
	s.entries = make(map[string]*memoryEntry, len(st.entries))
	for id, entry := range st.entries {
		s.entries[id] = &entry
	}
	s.nextSeq = st.nextSeq
}

func (s *memoryStore) resetLocked() {
	s.entries = make(map[string]*memoryEntry)
	s.nextSeq = 0
}

func (s *memoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// orderedLocked returns entries in insertion order.
func (s *memoryStore) orderedLocked() []*memoryEntry {
	out := make([]*memoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
