package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
)

// openAICompatibleClient talks to any OpenAI-compatible chat completions API (Groq by default).
type openAICompatibleClient struct {
	provider    string
	client      *openai.Client
	model       string
	temperature float32
	log         *zap.Logger
}

func NewOpenAICompatibleClient(provider string, cfg config.LLMConfig, log *zap.Logger) (LLMClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is required", provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &openAICompatibleClient{
		provider:    provider,
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		log:         logger.OrNop(log).With(zap.String("ai_provider", provider), zap.String("ai_model", cfg.Model)),
	}, nil
}

// Complete implements LLMClient.
func (c *openAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn("chat completion failed", zap.Bool("json_mode", jsonMode), zap.Error(err))
		return "", c.providerError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.provider, Body: "no response choices"}
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug("chat completion received",
		zap.Bool("json_mode", jsonMode),
		zap.Int("response_length", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}

func (c *openAICompatibleClient) providerError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: c.provider, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := err.Error()
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &ProviderError{Provider: c.provider, StatusCode: reqErr.HTTPStatusCode, Body: body, Err: err}
	}

	return fmt.Errorf("failed to call %s: %w", c.provider, err)
}
