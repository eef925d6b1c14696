// Package embedding implements the vector index writer (C5): it turns
// ERROR/CRITICAL rows into vectors via a Client, upserts them into
// error-cluster documents using a cosine-similarity threshold, and evicts
// expired embeddings on a TTL. The Client interface/real-plus-fake split
// mirrors vecdex's buildEmbedder composition root (cmd/vecdex/main.go):
// one HTTP-backed implementation, one deterministic fake for tests.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client embeds text into a fixed-dimension vector.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPClient calls an external embedding endpoint (e.g. an OpenAI-compatible
// /v1/embeddings API), the real implementation vecdex's transport/openai
// package models.
type HTTPClient struct {
	endpoint string
	model    string
	dim      int
	hc       *http.Client
}

// NewHTTPClient builds a Client against endpoint, requesting vectors of the
// given model/dim.
func NewHTTPClient(endpoint, model string, dim int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		model:    model,
		dim:      dim,
		hc:       &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed posts text to the configured endpoint and returns the first
// embedding vector in the response.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned no vectors")
	}
	if len(parsed.Data[0].Embedding) != c.dim {
		return nil, fmt.Errorf("embedding endpoint returned dim %d, expected %d", len(parsed.Data[0].Embedding), c.dim)
	}
	return parsed.Data[0].Embedding, nil
}

// FakeClient is a deterministic embedder for tests: it hashes text into a
// fixed-dim vector so equal text always produces equal vectors and distinct
// text reliably differs, without any network dependency.
type FakeClient struct {
	Dim int
}

func (f *FakeClient) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := f.Dim
	if dim == 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	h := uint32(2166136261)
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
		vec[i%dim] += float32(h%997) / 997.0
	}
	return vec, nil
}
