package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/omoide/internal/models"
)

// OpenAIConfig holds settings for an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. It is stateless:
// the same text yields the same vector modulo provider-side model versioning.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
	}, nil
}

// Embed generates a vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts in one provider call.
// Failures are classified into transient and permanent ProviderErrors; a partial
// response (fewer vectors than inputs) is treated as permanent.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &models.ProviderError{Err: errors.New("no texts provided for embedding")}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, &models.ProviderError{
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimensions {
			return nil, &models.ProviderError{
				Err: fmt.Errorf("provider returned dimension %d, expected %d", len(data.Embedding), e.dimensions),
			}
		}
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// classifyProviderError maps a go-openai error to a typed ProviderError.
// Timeouts, rate limits and server errors are transient; client errors
// (invalid input, auth, oversized text) are permanent.
func classifyProviderError(err error) *models.ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &models.ProviderError{Transient: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.ProviderError{Transient: true, Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &models.ProviderError{Transient: true, Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &models.ProviderError{Transient: true, Err: err}
		default:
			return &models.ProviderError{Transient: false, Err: err}
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		transient := reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
		return &models.ProviderError{Transient: transient, Err: err}
	}
	// Connection-level failures without a response are transient.
	return &models.ProviderError{Transient: true, Err: err}
}
