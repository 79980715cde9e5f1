package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

// Payload keys stored on every point.
const (
	payloadJobID       = "job_id"
	payloadSourceType  = "source_type"
	payloadSection     = "section"
	payloadCandidateID = "candidate_id"
	payloadFilename    = "filename"
	payloadChunkIdx    = "chunk_idx"
	payloadTimestamp   = "ts"
	payloadHash        = "sha256"
	payloadLang        = "lang"
	payloadDocument    = "document"
)

var filterKeys = []string{payloadJobID, payloadSourceType, payloadSection, payloadCandidateID}

// pointStore is the subset of *qdrant.Client used by DurableIndex.
type pointStore interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

// DurableIndex keeps evidence records in one Qdrant collection, partitioned by payload metadata.
type DurableIndex struct {
	store      pointStore
	embedder   Embedder
	collection string
	log        *zap.Logger

	mu      sync.Mutex
	ready   bool
	closed  bool
	nowFunc func() time.Time
}

// NewQdrantClient dials Qdrant's gRPC port from an http(s) URL.
func NewQdrantClient(urlStr, apiKey string) (*qdrant.Client, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return client, nil
}

func NewDurableIndex(store pointStore, embedder Embedder, collection string, log *zap.Logger) *DurableIndex {
	return &DurableIndex{
		store:      store,
		embedder:   embedder,
		collection: collection,
		log:        logger.OrNop(log),
		nowFunc:    time.Now,
	}
}

// Collection returns the backing collection name.
func (d *DurableIndex) Collection() string {
	return d.collection
}

// ensureCollection creates the collection and its keyword payload indexes on first use.
func (d *DurableIndex) ensureCollection(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("durable index is closed")
	}
	if d.ready {
		return nil
	}

	exists, err := d.store.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !exists {
		err = d.store.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(d.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		d.log.Info("✅ Qdrant collection created",
			zap.String("collection", d.collection),
			zap.Int("vector_size", d.embedder.Dimension()),
		)

		for _, key := range filterKeys {
			_, err := d.store.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: d.collection,
				FieldName:      key,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
				Wait:           qdrant.PtrOf(true),
			})
			if err != nil {
				return fmt.Errorf("failed to create payload index %s: %w", key, err)
			}
		}
	}

	d.ready = true
	return nil
}

// Ingest implements EvidenceIndex.
func (d *DurableIndex) Ingest(ctx context.Context, chunks []models.Chunk, meta models.RecordMetadata) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if err := d.ensureCollection(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := d.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	if err := checkDimensions(vectors, d.embedder.Dimension()); err != nil {
		return nil, err
	}

	ts := d.nowFunc().Unix()
	ids := make([]string, len(chunks))
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.NewString()
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(pointPayload(meta, c, ts)),
		}
	}

	_, err = d.store.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}

	d.log.Debug("points upserted",
		zap.String("collection", d.collection),
		zap.String(logger.FieldPosting, meta.JobID),
		zap.String("source_type", string(meta.SourceType)),
		zap.Int("count", len(points)),
	)
	return ids, nil
}

func pointPayload(meta models.RecordMetadata, c models.Chunk, ts int64) map[string]any {
	payload := map[string]any{
		payloadJobID:      meta.JobID,
		payloadSourceType: string(meta.SourceType),
		payloadFilename:   meta.Filename,
		payloadChunkIdx:   int64(c.Index),
		payloadTimestamp:  ts,
		payloadDocument:   c.Text,
	}
	optional := map[string]string{
		payloadSection:     meta.Section,
		payloadCandidateID: meta.CandidateID,
		payloadHash:        meta.ContentHash,
		payloadLang:        meta.Lang,
	}
	for k, v := range optional {
		if v != "" {
			payload[k] = v
		}
	}
	return payload
}

func buildFilter(f models.SearchFilter) *qdrant.Filter {
	var must []*qdrant.Condition
	for _, kv := range [][2]string{
		{payloadJobID, f.JobID},
		{payloadSourceType, string(f.SourceType)},
		{payloadSection, f.Section},
		{payloadCandidateID, f.CandidateID},
	} {
		if kv[1] != "" {
			must = append(must, qdrant.NewMatch(kv[0], kv[1]))
		}
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// Search implements EvidenceIndex.
func (d *DurableIndex) Search(ctx context.Context, query string, filter models.SearchFilter, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := d.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vectors, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}

	points, err := d.store.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, scoredPointToHit(p))
	}
	return hits, nil
}

func scoredPointToHit(p *qdrant.ScoredPoint) models.SearchHit {
	payload := p.GetPayload()
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	hit := models.SearchHit{
		Text:     str(payloadDocument),
		Distance: 1 - float64(p.GetScore()),
		Metadata: models.RecordMetadata{
			JobID:       str(payloadJobID),
			SourceType:  models.SourceType(str(payloadSourceType)),
			Section:     str(payloadSection),
			CandidateID: str(payloadCandidateID),
			Filename:    str(payloadFilename),
			ContentHash: str(payloadHash),
			Lang:        str(payloadLang),
		},
	}
	if v, ok := payload[payloadChunkIdx]; ok {
		hit.ChunkIdx = int(v.GetIntegerValue())
	}
	if id := p.GetId(); id != nil {
		if u := id.GetUuid(); u != "" {
			hit.ID = u
		} else {
			hit.ID = strconv.FormatUint(id.GetNum(), 10)
		}
	}
	return hit
}

// DeleteCandidate removes every record stored for one candidate of a job posting.
func (d *DurableIndex) DeleteCandidate(ctx context.Context, jobID, candidateID string) error {
	if jobID == "" || candidateID == "" {
		return errors.New("job id and candidate id are required")
	}
	if err := d.ensureCollection(ctx); err != nil {
		return err
	}

	_, err := d.store.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: buildFilter(models.SearchFilter{JobID: jobID, CandidateID: candidateID}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete candidate records: %w", err)
	}
	return nil
}

// Close releases the connection. Calling it more than once is a no-op.
func (d *DurableIndex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close qdrant client: %w", err)
	}
	return nil
}
