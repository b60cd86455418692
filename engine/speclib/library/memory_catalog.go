package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/compozy/specmatch/engine/speclib/chunk"
)

// MemoryCatalog keeps the catalog in process memory. It backs the ephemeral
// mode and tests.
type MemoryCatalog struct {
	mu     sync.RWMutex
	docs   []Document
	chunks []chunk.Chunk
	ids    map[string]struct{}
}

var _ Catalog = (*MemoryCatalog)(nil)

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{ids: make(map[string]struct{})}
}

func (c *MemoryCatalog) Insert(_ context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		id := entries[i].Document.ID
		if _, ok := c.ids[id]; ok {
			return fmt.Errorf("library: document %s already cataloged", id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("library: document %s repeated in batch", id)
		}
		seen[id] = struct{}{}
	}
	c.appendLocked(entries)
	return nil
}

func (c *MemoryCatalog) Replace(_ context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.appendLocked(entries)
	return nil
}

func (c *MemoryCatalog) Documents(context.Context) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out, nil
}

func (c *MemoryCatalog) Chunks(context.Context) ([]chunk.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chunk.Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out, nil
}

func (c *MemoryCatalog) HasDocument(_ context.Context, id string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok, nil
}

func (c *MemoryCatalog) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return nil
}

func (c *MemoryCatalog) Close(context.Context) error {
	return nil
}

func (c *MemoryCatalog) appendLocked(entries []Entry) {
	for i := range entries {
		c.docs = append(c.docs, entries[i].Document)
		c.ids[entries[i].Document.ID] = struct{}{}
		for j := range entries[i].Chunks {
			ch := entries[i].Chunks[j]
			ch.Embedding = nil
			c.chunks = append(c.chunks, ch)
		}
	}
}

func (c *MemoryCatalog) resetLocked() {
	c.docs = nil
	c.chunks = nil
	c.ids = make(map[string]struct{})
}
