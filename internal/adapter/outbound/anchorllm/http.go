// Package anchorllm provides the HTTP adapter for a remote structured-
// output LLM implementing the LLM Anchor Provider port: the
// request carries the prompt and the response schema, and the service must
// enforce the schema on its side. The local builder re-validates anyway.
package anchorllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fencio-dev/guard-sub000/internal/anchorbuilder"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// maxResponseBodySize bounds the LLM response body. Anchor responses are a
// handful of short strings.
const maxResponseBodySize = 1 * 1024 * 1024 // 1MB

// HTTPProvider calls a remote structured-output LLM over HTTP.
type HTTPProvider struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// Option is a functional option for configuring HTTPProvider.
type Option func(*HTTPProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProvider) {
		p.httpClient = client
	}
}

// WithTimeout sets the request timeout. Installation calls carry a 10s
// default deadline, so the transport timeout should sit at or above that.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProvider) {
		if p.httpClient != nil {
			p.httpClient.Timeout = d
		}
	}
}

// NewHTTPProvider creates an adapter for the LLM service at endpoint.
func NewHTTPProvider(endpoint, model string, opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type generateRequest struct {
	Model          string          `json:"model"`
	Prompt         string          `json:"prompt"`
	ResponseSchema json.RawMessage `json:"response_schema"`
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

// Generate posts the prompt and schema and returns the structured output.
func (p *HTTPProvider) Generate(ctx context.Context, prompt string, responseSchema json.RawMessage) (json.RawMessage, error) {
	body, err := json.Marshal(generateRequest{Model: p.model, Prompt: prompt, ResponseSchema: responseSchema})
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure, "encoding generate request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure, "building generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure, "anchor LLM unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, guarderr.New(guarderr.KindAnchorGenerationFailure,
			fmt.Sprintf("anchor LLM returned status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&out); err != nil {
		return nil, guarderr.Wrap(guarderr.KindAnchorGenerationFailure, "decoding generate response", err)
	}
	if len(out.Output) == 0 {
		return nil, guarderr.New(guarderr.KindAnchorGenerationFailure, "anchor LLM returned empty output")
	}
	return out.Output, nil
}

var _ anchorbuilder.LLMProvider = (*HTTPProvider)(nil)
