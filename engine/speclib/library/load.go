package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/chunk"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/vectordb"
	"github.com/compozy/specmatch/pkg/logger"
)

// Load extracts, chunks and embeds files, then commits them in one step.
//
// In append mode documents whose content hash is already loaded, or repeated
// within the batch, are skipped. Replace mode swaps the whole library for the
// batch, but a batch with nothing loadable leaves the library untouched.
// Per-document problems are reported as failures; model and dimension errors
// abort the load before anything is committed.
func (s *Store) Load(ctx context.Context, files []ingest.File, mode speclib.Mode) (*LoadResult, error) {
	if mode == "" {
		mode = speclib.ModeAppend
	}
	if mode != speclib.ModeAppend && mode != speclib.ModeReplace {
		return nil, speclib.InvalidInput("library: load", fmt.Sprintf("unknown load mode %q", mode))
	}
	result := newLoadResult(mode)
	result.Generation = s.Generation()
	if len(files) == 0 {
		return result, nil
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()
	log := logger.FromContext(ctx)

	entries, err := s.prepare(ctx, files, mode, result)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := s.embed(ctx, entries); err != nil {
			return nil, err
		}
		if err := s.commit(ctx, entries, mode, result); err != nil {
			return nil, err
		}
	}
	result.Generation = s.Generation()

	speclib.RecordLoadDuration(ctx, mode, time.Since(start))
	speclib.RecordChunks(ctx, result.ChunksLearned)
	speclib.RecordDocuments(ctx, outcomeLoaded, len(result.Processed))
	speclib.RecordDocuments(ctx, outcomeSkipped, len(result.Skipped))
	speclib.RecordDocuments(ctx, outcomeFailed, len(result.Failures))
	log.Info(
		"Spec library load finished",
		"mode", mode,
		"processed", len(result.Processed),
		"skipped", len(result.Skipped),
		"failed", len(result.Failures),
		"chunks", result.ChunksLearned,
		"generation", result.Generation,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Store) prepare(
	ctx context.Context,
	files []ingest.File,
	mode speclib.Mode,
	result *LoadResult,
) ([]Entry, error) {
	log := logger.FromContext(ctx)
	seen := make(map[string]struct{}, len(files))
	entries := make([]Entry, 0, len(files))
	for i := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := ingest.Extract(ctx, files[i])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("Skipping unreadable document", "filename", files[i].Name, "error", err)
			result.Failures = append(result.Failures, speclib.NewDocumentFailure(files[i].Name, err))
			continue
		}
		id := doc.ContentHash
		if _, dup := seen[id]; dup || (mode == speclib.ModeAppend && s.hasDocument(id)) {
			result.Skipped = append(result.Skipped, doc.Filename)
			continue
		}
		seen[id] = struct{}{}
		chunks, err := s.deps.Chunker.ChunkDocument(id, doc.Filename, doc.Text)
		if err == nil && len(chunks) == 0 {
			err = errors.New("no chunks produced")
		}
		if err != nil {
			failure := speclib.NewError(speclib.KindMalformedDocument, "chunk", doc.Filename, err)
			result.Failures = append(result.Failures, speclib.NewDocumentFailure(doc.Filename, failure))
			continue
		}
		entries = append(entries, Entry{
			Document: Document{
				ID:          id,
				Filename:    doc.Filename,
				ContentHash: doc.ContentHash,
				ContentType: doc.ContentType,
				Size:        doc.Size,
				ChunkCount:  len(chunks),
			},
			Chunks: chunks,
		})
	}
	return entries, nil
}

func (s *Store) embed(ctx context.Context, entries []Entry) error {
	texts := make([]string, 0)
	for i := range entries {
		for j := range entries[i].Chunks {
			texts = append(texts, entries[i].Chunks[j].Text)
		}
	}
	vectors, err := s.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return speclib.ModelUnavailable(
			"library: embed",
			fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts)),
		)
	}
	dim := s.deps.Index.Dimension()
	k := 0
	for i := range entries {
		for j := range entries[i].Chunks {
			if len(vectors[k]) != dim {
				return speclib.DimensionMismatch("library: embed "+entries[i].Chunks[j].ID, len(vectors[k]), dim)
			}
			entries[i].Chunks[j].Embedding = vectors[k]
			k++
		}
	}
	return nil
}

func (s *Store) commit(ctx context.Context, entries []Entry, mode speclib.Mode, result *LoadResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	if mode == speclib.ModeAppend {
		entries = s.dropLoadedLocked(entries, result)
		if len(entries) == 0 {
			return nil
		}
	}
	now := s.opts.Now().UTC()
	records := make([]vectordb.Record, 0)
	ids := make([]string, 0)
	for i := range entries {
		entries[i].Document.LoadedAt = now
		for j := range entries[i].Chunks {
			ch := &entries[i].Chunks[j]
			records = append(records, vectordb.Record{
				ID:        ch.ID,
				Text:      ch.Text,
				Embedding: ch.Embedding,
				Metadata:  map[string]any{metaDocumentID: ch.DocumentID},
			})
			ids = append(ids, ch.ID)
		}
	}
	if mode == speclib.ModeReplace {
		if err := s.replaceLocked(ctx, entries, records, ids); err != nil {
			return err
		}
	} else if err := s.appendLocked(ctx, entries, records, ids); err != nil {
		return err
	}
	for i := range entries {
		s.docIndex[entries[i].Document.ID] = len(s.docs)
		s.docs = append(s.docs, entries[i].Document)
		for j := range entries[i].Chunks {
			ch := entries[i].Chunks[j]
			ch.Embedding = nil
			s.chunks[ch.ID] = ch
		}
		result.Processed = append(result.Processed, entries[i].Document.Filename)
		result.ChunksLearned += len(entries[i].Chunks)
	}
	s.lastLoaded = now
	s.generation.Add(1)
	return nil
}

func (s *Store) appendLocked(ctx context.Context, entries []Entry, records []vectordb.Record, ids []string) error {
	if err := s.deps.Index.Upsert(ctx, records); err != nil {
		s.dropIndexed(ctx, ids)
		return fmt.Errorf("library: index chunks: %w", err)
	}
	if err := s.deps.Catalog.Insert(ctx, entries); err != nil {
		s.dropIndexed(ctx, ids)
		return fmt.Errorf("library: catalog documents: %w", err)
	}
	return nil
}

// replaceLocked upserts the batch next to the current chunks and swaps the
// catalog. Old chunks leave the index only after the catalog swap, so a failed
// step leaves the previous library searchable.
func (s *Store) replaceLocked(ctx context.Context, entries []Entry, records []vectordb.Record, ids []string) error {
	incoming := make(map[string]struct{}, len(ids))
	added := make([]string, 0, len(ids))
	for _, id := range ids {
		incoming[id] = struct{}{}
		if _, ok := s.chunks[id]; !ok {
			added = append(added, id)
		}
	}
	stale := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		if _, ok := incoming[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	if err := s.deps.Index.Upsert(ctx, records); err != nil {
		s.dropIndexed(ctx, added)
		return fmt.Errorf("library: index chunks: %w", err)
	}
	if err := s.deps.Catalog.Replace(ctx, entries); err != nil {
		s.dropIndexed(ctx, added)
		return fmt.Errorf("library: replace catalog: %w", err)
	}
	// leftovers are invisible to Search, which only returns cataloged chunks
	s.dropIndexed(ctx, stale)
	s.docs = make([]Document, 0, len(entries))
	s.docIndex = make(map[string]int, len(entries))
	s.chunks = make(map[string]chunk.Chunk)
	return nil
}

func (s *Store) dropIndexed(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.deps.Index.Delete(ctx, vectordb.Filter{IDs: ids}); err != nil {
		logger.FromContext(ctx).Error("Failed to remove chunks from index", "chunks", len(ids), "error", err)
	}
}

func (s *Store) dropLoadedLocked(entries []Entry, result *LoadResult) []Entry {
	kept := entries[:0]
	for i := range entries {
		if _, ok := s.docIndex[entries[i].Document.ID]; ok {
			result.Skipped = append(result.Skipped, entries[i].Document.Filename)
			continue
		}
		kept = append(kept, entries[i])
	}
	return kept
}

func (s *Store) hasDocument(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docIndex[id]
	return ok
}
