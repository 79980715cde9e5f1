package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/cv-screener/internal/models"
)

func newTestEvaluator(t *testing.T, durable EvidenceIndex, llm LLMClient) EvaluatorService {
	t.Helper()
	rubric, err := LoadRubric()
	require.NoError(t, err)
	return NewEvaluatorService(
		NewRetriever(durable, 8),
		durable,
		newHashEmbedder(),
		NewTextLoader(),
		NewTextChunker(320, 60),
		llm,
		NewPromptBuilder(rubric),
		nil,
	)
}

func candidateFiles(t *testing.T) (cv, project []string) {
	t.Helper()
	dir := t.TempDir()
	cv = []string{writeFile(t, filepath.Join(dir, "cv"), "cv.md", "Go backend engineer. Contact jane@example.com")}
	project = []string{writeFile(t, filepath.Join(dir, "project"), "report.md", "RAG pipeline with retries and prompt chaining")}
	return cv, project
}

func TestEvaluateFromFiles(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{text: validLLMOutput}}}
	ev := newTestEvaluator(t, postingIndex(t), llm)
	cv, project := candidateFiles(t)

	res, err := ev.EvaluateFromFiles(context.Background(), "j1", cv, project)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.CVMatchRate, 1e-9)
	assert.InDelta(t, 4.0, res.ProjectScore, 1e-9)
	assert.Equal(t, models.DecisionAdvance, res.Decision)
	assert.Equal(t, []bool{true}, llm.jsonModes)

	user := llm.messages[0][1].Content
	assert.Contains(t, user, "backend responsibilities rag chaining")
	assert.Contains(t, user, "RAG pipeline with retries")
	assert.Contains(t, user, EmailPlaceholder)
	assert.NotContains(t, user, "jane@example.com")
	assert.NotContains(t, user, "other posting")
}

func TestEvaluateRetriesWithoutJSONMode(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{text: "not json at all"}, {text: validLLMOutput}}}
	ev := newTestEvaluator(t, postingIndex(t), llm)
	cv, project := candidateFiles(t)

	res, err := ev.EvaluateFromFiles(context.Background(), "j1", cv, project)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAdvance, res.Decision)
	assert.Equal(t, []bool{true, false}, llm.jsonModes)
}

func TestEvaluateFailsAfterSecondInvalidOutput(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{text: "{}"}, {text: `{"cv": 1}`}}}
	ev := newTestEvaluator(t, postingIndex(t), llm)
	cv, project := candidateFiles(t)

	_, err := ev.EvaluateFromFiles(context.Background(), "j1", cv, project)
	assert.ErrorIs(t, err, ErrInvalidLLMResponse)
	assert.Len(t, llm.jsonModes, 2)
}

func TestEvaluateDoesNotRetryProviderErrors(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{err: &ProviderError{Provider: "fake", StatusCode: 500, Body: "boom"}}}}
	ev := newTestEvaluator(t, postingIndex(t), llm)
	cv, project := candidateFiles(t)

	_, err := ev.EvaluateFromFiles(context.Background(), "j1", cv, project)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 500, perr.StatusCode)
	assert.Len(t, llm.jsonModes, 1)
}

func TestEvaluateFromFilesUnreadableFile(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{text: validLLMOutput}}}
	ev := newTestEvaluator(t, postingIndex(t), llm)

	_, err := ev.EvaluateFromFiles(context.Background(), "j1", []string{filepath.Join(t.TempDir(), "missing.pdf")}, nil)
	assert.Error(t, err)
	assert.Empty(t, llm.jsonModes)
}

func TestEvaluatePersistent(t *testing.T) {
	ctx := context.Background()
	durable := postingIndex(t)
	_, err := durable.Ingest(ctx, []models.Chunk{{Text: "alice go kubernetes"}},
		models.RecordMetadata{JobID: "j1", SourceType: models.SourceCV, CandidateID: "alice"})
	require.NoError(t, err)
	_, err = durable.Ingest(ctx, []models.Chunk{{Text: "bob rust embedded"}},
		models.RecordMetadata{JobID: "j1", SourceType: models.SourceCV, CandidateID: "bob"})
	require.NoError(t, err)

	llm := &scriptedLLM{replies: []llmReply{{text: validLLMOutput}}}
	ev := newTestEvaluator(t, durable, llm)

	res, err := ev.EvaluatePersistent(ctx, "j1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAdvance, res.Decision)

	user := llm.messages[0][1].Content
	assert.Contains(t, user, "alice go kubernetes")
	assert.NotContains(t, user, "bob rust embedded")
}

func TestEvaluatePersistentRequiresCandidate(t *testing.T) {
	llm := &scriptedLLM{}
	ev := newTestEvaluator(t, postingIndex(t), llm)

	_, err := ev.EvaluatePersistent(context.Background(), "j1", "")
	assert.Error(t, err)
	assert.Empty(t, llm.jsonModes)
}

func TestEvaluateLogsRetry(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rubric, err := LoadRubric()
	require.NoError(t, err)
	durable := postingIndex(t)
	llm := &scriptedLLM{replies: []llmReply{{text: "```json\n{\"cv\": {}}\n```"}, {text: validLLMOutput}}}
	ev := NewEvaluatorService(NewRetriever(durable, 8), durable, newHashEmbedder(), NewTextLoader(),
		NewTextChunker(320, 60), llm, NewPromptBuilder(rubric), zap.New(core))
	cv, project := candidateFiles(t)

	_, err = ev.EvaluateFromFiles(context.Background(), "j1", cv, project)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("retrying without json mode").Len())
}
