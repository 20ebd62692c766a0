package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/config"
)

// Backend sends one prompt to a language model and returns its raw reply.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

type SynthesisError struct {
	Provider string
	Model    string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("query synthesis via %s (%s) failed: %v", e.Provider, e.Model, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

var errEmptyCompletion = errors.New("model returned no query")

type Synthesizer struct {
	backend Backend
}

func NewSynthesizer(backend Backend) (*Synthesizer, error) {
	if backend == nil {
		return nil, fmt.Errorf("synthesis backend is required")
	}
	return &Synthesizer{backend: backend}, nil
}

// Synthesize asks the backend for a query and strips any markdown fencing
// from the reply. It never retries.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string) (string, error) {
	raw, err := s.backend.Complete(ctx, prompt)
	if err != nil {
		return "", s.fail(err)
	}
	sql := StripCodeFences(raw)
	if sql == "" {
		return "", s.fail(errEmptyCompletion)
	}
	return sql, nil
}

func (s *Synthesizer) Provider() string {
	return s.backend.Provider()
}

func (s *Synthesizer) Model() string {
	return s.backend.Model()
}

func (s *Synthesizer) fail(err error) error {
	return &SynthesisError{Provider: s.backend.Provider(), Model: s.backend.Model(), Err: err}
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderOllama:
		return NewOllamaBackend(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderOpenAI:
		return NewOpenAIBackend(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, GeminiConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
