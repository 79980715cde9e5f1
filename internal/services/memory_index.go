package services

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/cv-screener/internal/models"
)

// EphemeralIndex holds evidence in process memory for the lifetime of one evaluation.
type EphemeralIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	records []models.EvidenceRecord
}

func NewEphemeralIndex(embedder Embedder) *EphemeralIndex {
	return &EphemeralIndex{embedder: embedder}
}

// Len returns the number of held records.
func (e *EphemeralIndex) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Ingest implements EvidenceIndex.
func (e *EphemeralIndex) Ingest(ctx context.Context, chunks []models.Chunk, meta models.RecordMetadata) ([]string, error) {
	metas := make([]models.RecordMetadata, len(chunks))
	for i := range chunks {
		metas[i] = meta
	}
	return e.add(ctx, chunks, metas)
}

// add embeds every chunk in a single call and stores the resulting records.
func (e *EphemeralIndex) add(ctx context.Context, chunks []models.Chunk, metas []models.RecordMetadata) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	if err := checkDimensions(vectors, e.embedder.Dimension()); err != nil {
		return nil, err
	}

	now := time.Now()
	ids := make([]string, len(chunks))
	records := make([]models.EvidenceRecord, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.NewString()
		records[i] = models.EvidenceRecord{
			ID:        ids[i],
			Text:      c.Text,
			Embedding: vectors[i],
			Metadata:  metas[i],
			ChunkIdx:  c.Index,
			CreatedAt: now,
		}
	}

	e.mu.Lock()
	e.records = append(e.records, records...)
	e.mu.Unlock()

	return ids, nil
}

// Search implements EvidenceIndex.
func (e *EphemeralIndex) Search(ctx context.Context, query string, filter models.SearchFilter, k int) ([]models.SearchHit, error) {
	if k <= 0 || e.Len() == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}
	q := vectors[0]
	if err := checkDimensions([][]float32{q}, e.embedder.Dimension()); err != nil {
		return nil, err
	}

	e.mu.RLock()
	hits := make([]models.SearchHit, 0, len(e.records))
	for _, r := range e.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		hits = append(hits, models.SearchHit{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			ChunkIdx: r.ChunkIdx,
			Distance: 1 - cosineSimilarity(q, r.Embedding),
		})
	}
	e.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EphemeralScope identifies whose files an ephemeral index is built from.
type EphemeralScope struct {
	JobID       string
	CandidateID string
	SourceType  models.SourceType
}

// BuildEphemeralIndex loads, masks, chunks and embeds the given files into a fresh index.
// PII masking is always applied.
func BuildEphemeralIndex(
	ctx context.Context,
	loader TextLoader,
	chunker TextChunker,
	embedder Embedder,
	paths []string,
	scope EphemeralScope,
) (*EphemeralIndex, error) {
	idx := NewEphemeralIndex(embedder)

	var chunks []models.Chunk
	var metas []models.RecordMetadata
	for _, path := range paths {
		raw, err := loader.LoadText(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
		}

		meta := models.RecordMetadata{
			JobID:       scope.JobID,
			SourceType:  scope.SourceType,
			CandidateID: scope.CandidateID,
			Filename:    filepath.Base(path),
		}
		for _, c := range chunker.ChunkText(NormalizeText(raw, true)) {
			chunks = append(chunks, c)
			metas = append(metas, meta)
		}
	}

	if _, err := idx.add(ctx, chunks, metas); err != nil {
		return nil, err
	}
	return idx, nil
}
