package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"alfredoptarigan/cv-screener/internal/models"
)

func dimensionGroupSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feedback": map[string]any{"type": "string"},
			"dimensions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"weight":    map[string]any{"type": []string{"number", "string", "null"}},
						"score":     map[string]any{"type": []string{"number", "string", "null"}},
						"rationale": map[string]any{"type": "string"},
						"evidence": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []string{"snippet"},
								"properties": map[string]any{
									"chunk_id": map[string]any{"type": []string{"string", "null"}},
									"filename": map[string]any{"type": []string{"string", "null"}},
									"snippet":  map[string]any{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// LLMResultSchema describes the model output accepted by the orchestrator.
func LLMResultSchema() map[string]any {
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"overall_summary"},
		"properties": map[string]any{
			"cv":              dimensionGroupSchema(),
			"project":         dimensionGroupSchema(),
			"overall_summary": map[string]any{"type": "string"},
			"risks": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

var compiledResultSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(LLMResultSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("llm_result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("llm_result.json")
})

// ValidateLLMOutput checks raw model output against LLMResultSchema and decodes it.
// Markdown code fences around the JSON are tolerated.
func ValidateLLMOutput(raw string) (*models.LLMResult, error) {
	schema, err := compiledResultSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	data := []byte(extractJSON(raw))

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLLMResponse, err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: json does not match schema: %v", ErrInvalidLLMResponse, err)
	}

	var result models.LLMResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLLMResponse, err)
	}
	return &result, nil
}

// extractJSON strips markdown fences and surrounding prose from a model reply.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
