package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmbeddingsConfig configures the embeddings client.
type EmbeddingsConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Embeddings is a client for OpenAI-compatible /embeddings endpoints.
// The vector dimension is learned from the first successful response.
type Embeddings struct {
	config     EmbeddingsConfig
	httpClient *http.Client
	dimension  int
}

// NewEmbeddings creates an embeddings client with the given configuration.
func NewEmbeddings(config EmbeddingsConfig) *Embeddings {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	return &Embeddings{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Dimension returns the vector dimensionality, or 0 before the first embed.
func (e *Embeddings) Dimension() int { return e.dimension }

type embeddingsRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// Embed returns an embedding vector for the given text. Transient failures
// (429, 5xx, transport errors) are retried with capped exponential backoff.
func (e *Embeddings) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vec, retryable, err := e.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (e *Embeddings) embedOnce(ctx context.Context, text string) (vec []float64, retryable bool, err error) {
	body, err := json.Marshal(embeddingsRequest{Input: text, Model: e.config.Model})
	if err != nil {
		return nil, false, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("embeddings API error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("embeddings API error: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}

	// OpenAI-compatible shape first, then the Ollama-native one.
	var openaiOut struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 && len(openaiOut.Data[0].Embedding) > 0 {
		v := openaiOut.Data[0].Embedding
		if e.dimension == 0 {
			e.dimension = len(v)
		}
		return v, false, nil
	}
	var ollamaOut struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		v := ollamaOut.Embedding
		if e.dimension == 0 {
			e.dimension = len(v)
		}
		return v, false, nil
	}
	return nil, false, errors.New("no embedding in response")
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
