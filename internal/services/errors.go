package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported file type")
	ErrEmptyBatch         = errors.New("batch has no uploaded files")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrInvalidLLMResponse = errors.New("invalid llm response")
	ErrVectorDimension    = errors.New("embedding dimension mismatch")
	ErrFileTooLarge       = errors.New("file exceeds maximum size")
	ErrInvalidBatchID     = errors.New("invalid batch id")
)

// ProviderError is a non-success response from a language model provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
