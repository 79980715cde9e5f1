package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/cv-screener/internal/config"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient completes a chat. With jsonMode the provider is asked for strict JSON output.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error)
}

// NewLLMClient picks the provider named in cfg.Provider.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (LLMClient, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "groq", "openai":
		return NewOpenAICompatibleClient(provider, cfg, log)
	case "gemini":
		return NewGeminiLLM(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
