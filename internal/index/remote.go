package index

import (
	"context"
	"time"
)

// EmbeddingClient is the surface of a remote embeddings API.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// RemoteEmbedder adapts a remote embeddings client to the Embedder
// interface, bounding each call with a timeout.
type RemoteEmbedder struct {
	client  EmbeddingClient
	timeout time.Duration
}

const defaultRemoteTimeout = 30 * time.Second

func NewRemoteEmbedder(client EmbeddingClient, timeout time.Duration) *RemoteEmbedder {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteEmbedder{client: client, timeout: timeout}
}

func (r *RemoteEmbedder) Embed(text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Embed(ctx, text)
}

func (r *RemoteEmbedder) Dimension() int {
	return r.client.Dimension()
}
