// Package embedder provides the HTTP adapter for a remote embedding
// service implementing the Embedder port: POST a
// text, receive a fixed-width float vector. Determinism for a pinned model
// version is the remote service's contract; this adapter enforces only the
// dimension.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fencio-dev/guard-sub000/internal/encoder"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// maxResponseBodySize bounds the embedding response body. A 384-dim float
// vector serializes to a few KB; anything near this limit is a misbehaving
// upstream.
const maxResponseBodySize = 1 * 1024 * 1024 // 1MB

// HTTPEmbedder calls a remote embedding service over HTTP.
type HTTPEmbedder struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// Option is a functional option for configuring HTTPEmbedder.
type Option func(*HTTPEmbedder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *HTTPEmbedder) {
		e.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *HTTPEmbedder) {
		if e.httpClient != nil {
			e.httpClient.Timeout = d
		}
	}
}

// NewHTTPEmbedder creates an adapter for the embedding service at
// endpoint, pinned to the named model version.
func NewHTTPEmbedder(endpoint, model string, opts ...Option) *HTTPEmbedder {
	e := &HTTPEmbedder{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dim reports the base embedding width for projection-matrix sizing.
func (e *HTTPEmbedder) Dim() int { return encoder.BaseDim }

type embedRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed posts text to the embedding service and returns the base vector.
// Transport failures, non-200 statuses, and dimension mismatches all
// surface as EmbedderFailure.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Text: text})
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindEmbedderFailure, "encoding embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindEmbedderFailure, "building embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindEmbedderFailure, "embedding service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, guarderr.New(guarderr.KindEmbedderFailure,
			fmt.Sprintf("embedding service returned status %d", resp.StatusCode))
	}

	var out embedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&out); err != nil {
		return nil, guarderr.Wrap(guarderr.KindEmbedderFailure, "decoding embed response", err)
	}
	if len(out.Embedding) != encoder.BaseDim {
		return nil, guarderr.New(guarderr.KindEmbedderFailure,
			fmt.Sprintf("embedding service returned %d dims, want %d", len(out.Embedding), encoder.BaseDim))
	}
	return out.Embedding, nil
}

var _ encoder.Embedder = (*HTTPEmbedder)(nil)
