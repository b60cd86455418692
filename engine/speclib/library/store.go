package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/embedder"
	"github.com/compozy/specmatch/engine/speclib/vectordb"
	"github.com/compozy/specmatch/pkg/logger"
)

const (
	defaultSearchK   = 5
	metaDocumentID   = "document_id"
	outcomeLoaded    = "loaded"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
	defaultLoadLimit = 10 * time.Minute
)

// Chunker splits extracted document text into identified chunks.
type Chunker interface {
	ChunkDocument(docID, filename, text string) ([]chunk.Chunk, error)
}

// Deps are the collaborators a Store is built from. All are required.
type Deps struct {
	Catalog  Catalog
	Index    vectordb.Store
	Chunker  Chunker
	Embedder embedder.Embedder
}

// Options tune a Store.
type Options struct {
	// LoadTimeout bounds a whole Load call. Zero uses ten minutes.
	LoadTimeout time.Duration
	// Now overrides the clock used for LoadedAt stamps.
	Now func() time.Time
}

// Store is the spec library: documents and chunks kept in a catalog and a
// similarity index. Loads and Clear hold the writer lock only while
// committing; searches hold the reader lock.
type Store struct {
	deps Deps
	opts Options

	mu         sync.RWMutex
	docs       []Document
	docIndex   map[string]int
	chunks     map[string]chunk.Chunk
	lastLoaded time.Time
	generation atomic.Uint64
	closed     bool
}

// New builds a Store and loads the catalog view into memory.
func New(ctx context.Context, deps Deps, opts Options) (*Store, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("library: catalog is required")
	case deps.Index == nil:
		return nil, errors.New("library: similarity index is required")
	case deps.Chunker == nil:
		return nil, errors.New("library: chunker is required")
	case deps.Embedder == nil:
		return nil, errors.New("library: embedder is required")
	}
	if got, want := deps.Embedder.Dimension(), deps.Index.Dimension(); got != want {
		return nil, speclib.DimensionMismatch("library: open", got, want)
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{deps: deps, opts: opts}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	indexed, err := deps.Index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("library: count index records: %w", err)
	}
	if indexed != len(s.chunks) {
		logger.FromContext(ctx).Warn(
			"Similarity index and catalog disagree",
			"indexed", indexed,
			"cataloged", len(s.chunks),
		)
	}
	return s, nil
}

// refresh reloads the in-memory view from the catalog. Callers hold the writer
// lock or own the store exclusively.
func (s *Store) refresh(ctx context.Context) error {
	docs, err := s.deps.Catalog.Documents(ctx)
	if err != nil {
		return fmt.Errorf("library: load documents: %w", err)
	}
	chunks, err := s.deps.Catalog.Chunks(ctx)
	if err != nil {
		return fmt.Errorf("library: load chunks: %w", err)
	}
	s.docs = docs
	s.docIndex = make(map[string]int, len(docs))
	s.lastLoaded = time.Time{}
	for i := range docs {
		s.docIndex[docs[i].ID] = i
		if docs[i].LoadedAt.After(s.lastLoaded) {
			s.lastLoaded = docs[i].LoadedAt
		}
	}
	s.chunks = make(map[string]chunk.Chunk, len(chunks))
	for i := range chunks {
		s.chunks[chunks[i].ID] = chunks[i]
	}
	return nil
}

// Generation increases on every committed load or clear.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Dimension is the vector length shared by the embedder and index.
func (s *Store) Dimension() int {
	return s.deps.Index.Dimension()
}

// Embedder exposes the embedder used for documents so queries share its space.
func (s *Store) Embedder() embedder.Embedder {
	return s.deps.Embedder
}

// Search returns the k nearest chunks to vector, best first. An empty
// library yields an empty slice.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = defaultSearchK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errStoreClosed
	}
	hits, err := s.deps.Index.Search(ctx, vector, vectordb.SearchOptions{TopK: k})
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(hits))
	for i := range hits {
		ch, ok := s.chunks[hits[i].ID]
		if !ok {
			logger.FromContext(ctx).Debug("Dropping index hit missing from catalog", "chunk_id", hits[i].ID)
			continue
		}
		out = append(out, Match{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			Filename:   ch.Filename,
			Index:      ch.Index,
			Score:      hits[i].Score,
			Text:       ch.Text,
			References: append([]string(nil), ch.References...),
		})
	}
	return out, nil
}

// Status reports the library content.
func (s *Store) Status(_ context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errStoreClosed
	}
	summary := &Summary{
		Documents:   len(s.docs),
		Chunks:      len(s.chunks),
		Dimension:   s.deps.Index.Dimension(),
		Generation:  s.generation.Load(),
		PerDocument: make([]DocumentStatus, 0, len(s.docs)),
	}
	if !s.lastLoaded.IsZero() {
		last := s.lastLoaded
		summary.LastLoadedAt = &last
	}
	for i := range s.docs {
		summary.PerDocument = append(summary.PerDocument, DocumentStatus{
			ID:       s.docs[i].ID,
			Filename: s.docs[i].Filename,
			Chunks:   s.docs[i].ChunkCount,
			LoadedAt: s.docs[i].LoadedAt,
		})
	}
	return summary, nil
}

// Clear removes every document and chunk.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	if err := s.deps.Index.Reset(ctx); err != nil {
		return fmt.Errorf("library: reset index: %w", err)
	}
	if err := s.deps.Catalog.Clear(ctx); err != nil {
		return fmt.Errorf("library: clear catalog: %w", err)
	}
	s.docs = nil
	s.docIndex = make(map[string]int)
	s.chunks = make(map[string]chunk.Chunk)
	s.lastLoaded = time.Time{}
	s.generation.Add(1)
	logger.FromContext(ctx).Info("Spec library cleared", "generation", s.generation.Load())
	return nil
}

// Close releases the index and catalog. Further calls fail.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.deps.Index.Close(ctx), s.deps.Catalog.Close(ctx))
}

var errStoreClosed = errors.New("library: store is closed")
