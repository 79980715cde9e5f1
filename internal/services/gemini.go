package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
)

const defaultEmbedBatchSize = 100

type geminiEmbedder struct {
	client     *genai.Client
	embedModel string
	dimension  int
	batchSize  int
}

// NewGeminiEmbedder builds the process-wide embedding provider.
func NewGeminiEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}

	return &geminiEmbedder{
		client:     client,
		embedModel: cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  batchSize,
	}, nil
}

// Dimension implements Embedder.
func (g *geminiEmbedder) Dimension() int {
	return g.dimension
}

// Embed implements Embedder.
func (g *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dim := int32(g.dimension)
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}

		result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if result == nil || len(result.Embeddings) != end-start {
			return nil, fmt.Errorf("unexpected embedding result for %d texts", end-start)
		}

		for _, e := range result.Embeddings {
			out = append(out, normalizeVector(e.Values))
		}
	}

	if err := checkDimensions(out, g.dimension); err != nil {
		return nil, err
	}
	return out, nil
}

type geminiLLM struct {
	client      *genai.Client
	modelName   string
	temperature float32
	log         *zap.Logger
}

func NewGeminiLLM(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (LLMClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiLLM{
		client:      client,
		modelName:   model,
		temperature: cfg.Temperature,
		log:         logger.OrNop(log).With(zap.String("ai_provider", "gemini"), zap.String("ai_model", model)),
	}, nil
}

// Complete implements LLMClient. System messages become the system instruction.
func (g *geminiLLM) Complete(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 8192,
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}

	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
		}
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", &ProviderError{Provider: "gemini", Body: "nil response"}
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Provider: "gemini", Body: "no text content in response"}
	}

	g.log.Debug("gemini response received", zap.Bool("json_mode", jsonMode), zap.Int("response_length", len(text)))
	return text, nil
}
