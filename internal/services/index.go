package services

import (
	"context"

	"alfredoptarigan/cv-screener/internal/models"
)

// EvidenceIndex is implemented by DurableIndex and EphemeralIndex. Both return
// hits ranked by ascending distance, where distance is 1 - cosine similarity.
type EvidenceIndex interface {
	Ingest(ctx context.Context, chunks []models.Chunk, meta models.RecordMetadata) ([]string, error)
	Search(ctx context.Context, query string, filter models.SearchFilter, k int) ([]models.SearchHit, error)
}
