package nl2sql

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "mistral"
)

type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OllamaBackend talks to the non-streaming /api/chat endpoint.
type OllamaBackend struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

func NewOllamaBackend(cfg OllamaConfig) (*OllamaBackend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaBackend{
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (b *OllamaBackend) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"options": map[string]any{
			"temperature": b.temperature,
		},
	}

	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := postJSON(ctx, b.client, b.baseURL+"/api/chat", nil, payload, &parsed); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return "", fmt.Errorf("ollama chat: empty message content")
	}
	return parsed.Message.Content, nil
}

func (b *OllamaBackend) Provider() string { return "ollama" }

func (b *OllamaBackend) Model() string { return b.model }
