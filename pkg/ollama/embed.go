// Package ollama provides an Ollama-backed embedding client satisfying the
// engine's embed.Client contract.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client calls Ollama's batch embedding endpoint. Vectors are L2-normalized
// before being returned, since Ollama does not normalize and downstream
// enforces unit norm.
type Client struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

// New creates an Ollama embedding client for the given model and declared
// dimension.
func New(baseURL, model string, dim int) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		dim:     dim,
		client: &http.Client{
			Timeout:   120 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Model returns the model identifier recorded in shard and manifest docs.
func (c *Client) Model() string { return c.model }

// Dimension returns the declared embedding dimension.
func (c *Client) Dimension() int { return c.dim }

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// EmbedBatch returns one vector per input text, order-aligned.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedReq{Model: c.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, vec := range result.Embeddings {
		out[i] = normalize(vec)
	}
	return out, nil
}

func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	out := make([]float32, len(vec))
	for i, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[i] = float32(v)
	}
	return out
}
