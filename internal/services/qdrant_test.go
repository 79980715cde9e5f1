package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-screener/internal/models"
)

type fakePointStore struct {
	exists       bool
	created      []*qdrant.CreateCollection
	fieldIndexes []string
	upserts      []*qdrant.UpsertPoints
	queries      []*qdrant.QueryPoints
	deletes      []*qdrant.DeletePoints
	queryResult  []*qdrant.ScoredPoint
	queryErr     error
	closeCalls   int
}

func (f *fakePointStore) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakePointStore) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.created = append(f.created, req)
	f.exists = true
	return nil
}

func (f *fakePointStore) CreateFieldIndex(_ context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error) {
	f.fieldIndexes = append(f.fieldIndexes, req.GetFieldName())
	return &qdrant.UpdateResult{}, nil
}

func (f *fakePointStore) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakePointStore) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queries = append(f.queries, req)
	return f.queryResult, f.queryErr
}

func (f *fakePointStore) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.deletes = append(f.deletes, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakePointStore) Close() error {
	f.closeCalls++
	return nil
}

func mustConditions(t *testing.T, filter *qdrant.Filter) map[string]string {
	t.Helper()
	require.NotNil(t, filter)
	out := map[string]string{}
	for _, c := range filter.GetMust() {
		field := c.GetField()
		require.NotNil(t, field)
		out[field.GetKey()] = field.GetMatch().GetKeyword()
	}
	return out
}

func TestDurableIndexCreatesCollectionLazilyOnce(t *testing.T) {
	ctx := context.Background()
	store := &fakePointStore{}
	emb := newHashEmbedder()
	idx := NewDurableIndex(store, emb, "jobs_corpus", nil)

	assert.Empty(t, store.created)

	meta := models.RecordMetadata{JobID: "j1", SourceType: models.SourceJobDescription, Filename: "jd.pdf"}
	_, err := idx.Ingest(ctx, []models.Chunk{{Text: "first"}}, meta)
	require.NoError(t, err)
	_, err = idx.Ingest(ctx, []models.Chunk{{Text: "second"}}, meta)
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, "jobs_corpus", store.created[0].GetCollectionName())
	params := store.created[0].GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(emb.Dimension()), params.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, params.GetDistance())
	assert.ElementsMatch(t, []string{"job_id", "source_type", "section", "candidate_id"}, store.fieldIndexes)
}

func TestDurableIndexSkipsCreateWhenCollectionExists(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	_, err := idx.Search(context.Background(), "q", models.SearchFilter{}, 3)
	require.NoError(t, err)
	assert.Empty(t, store.created)
	assert.Empty(t, store.fieldIndexes)
}

func TestDurableIndexIngestPayload(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	meta := models.RecordMetadata{
		JobID:       "j1",
		SourceType:  models.SourceRubric,
		Section:     models.SectionRubricCV,
		Filename:    "rubric.md",
		ContentHash: "abc123",
		Lang:        "en",
	}
	ids, err := idx.Ingest(context.Background(), []models.Chunk{
		{Index: 0, Text: "technical skills"},
		{Index: 1, Text: "experience level"},
	}, meta)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.Len(t, store.upserts, 1)
	points := store.upserts[0].GetPoints()
	require.Len(t, points, 2)

	for i, p := range points {
		_, err := uuid.Parse(p.GetId().GetUuid())
		require.NoError(t, err)
		assert.Equal(t, ids[i], p.GetId().GetUuid())

		payload := p.GetPayload()
		assert.Equal(t, "j1", payload["job_id"].GetStringValue())
		assert.Equal(t, "rubric", payload["source_type"].GetStringValue())
		assert.Equal(t, "rubric_cv", payload["section"].GetStringValue())
		assert.Equal(t, "rubric.md", payload["filename"].GetStringValue())
		assert.Equal(t, "abc123", payload["sha256"].GetStringValue())
		assert.Equal(t, int64(i), payload["chunk_idx"].GetIntegerValue())
		assert.NotZero(t, payload["ts"].GetIntegerValue())
		_, hasCandidate := payload["candidate_id"]
		assert.False(t, hasCandidate)
	}
	assert.Equal(t, "experience level", points[1].GetPayload()["document"].GetStringValue())
}

func TestDurableIndexSearch(t *testing.T) {
	store := &fakePointStore{
		exists: true,
		queryResult: []*qdrant.ScoredPoint{
			{
				Id:    qdrant.NewID("7f8c1c0e-1b7a-4a53-9d59-6f1f5f3d9a10"),
				Score: 0.9,
				Payload: qdrant.NewValueMap(map[string]any{
					"job_id":       "j1",
					"source_type":  "cv",
					"candidate_id": "c9",
					"filename":     "cv.pdf",
					"chunk_idx":    int64(3),
					"document":     "built payment APIs in Go",
				}),
			},
		},
	}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	hits, err := idx.Search(context.Background(), QueryCandidateCV,
		models.SearchFilter{JobID: "j1", SourceType: models.SourceCV, CandidateID: "c9"}, 8)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, "7f8c1c0e-1b7a-4a53-9d59-6f1f5f3d9a10", h.ID)
	assert.Equal(t, "built payment APIs in Go", h.Text)
	assert.Equal(t, 3, h.ChunkIdx)
	assert.Equal(t, "c9", h.Metadata.CandidateID)
	assert.Equal(t, models.SourceCV, h.Metadata.SourceType)
	assert.InDelta(t, 0.1, h.Distance, 1e-6)

	require.Len(t, store.queries, 1)
	q := store.queries[0]
	assert.Equal(t, uint64(8), q.GetLimit())
	assert.Equal(t, map[string]string{"job_id": "j1", "source_type": "cv", "candidate_id": "c9"}, mustConditions(t, q.GetFilter()))
}

func TestDurableIndexSearchPropagatesErrors(t *testing.T) {
	store := &fakePointStore{exists: true, queryErr: errors.New("unavailable")}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	_, err := idx.Search(context.Background(), "q", models.SearchFilter{JobID: "j1"}, 8)
	assert.ErrorContains(t, err, "unavailable")
}

func TestDurableIndexRejectsWrongDimension(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, shortEmbedder{}, "jobs_corpus", nil)

	_, err := idx.Ingest(context.Background(), []models.Chunk{{Text: "x"}}, models.RecordMetadata{JobID: "j1"})
	assert.ErrorIs(t, err, ErrVectorDimension)
	assert.Empty(t, store.upserts)
}

func TestDurableIndexRejectsMissingVectors(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, droppingEmbedder{}, "jobs_corpus", nil)

	chunks := []models.Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	ids, err := idx.Ingest(context.Background(), chunks, models.RecordMetadata{JobID: "j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 3 chunks")
	assert.Nil(t, ids)
	assert.Empty(t, store.upserts)
}

func TestDurableIndexDeleteCandidate(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	require.Error(t, idx.DeleteCandidate(context.Background(), "j1", ""))
	require.NoError(t, idx.DeleteCandidate(context.Background(), "j1", "c9"))

	require.Len(t, store.deletes, 1)
	filter := store.deletes[0].GetPoints().GetFilter()
	assert.Equal(t, map[string]string{"job_id": "j1", "candidate_id": "c9"}, mustConditions(t, filter))
}

func TestDurableIndexCloseIsIdempotent(t *testing.T) {
	store := &fakePointStore{exists: true}
	idx := NewDurableIndex(store, newHashEmbedder(), "jobs_corpus", nil)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())
	assert.Equal(t, 1, store.closeCalls)

	_, err := idx.Search(context.Background(), "q", models.SearchFilter{}, 1)
	assert.Error(t, err)
}
