package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/docketwatch/docketwatch/engine/domain"
)

// fakeClient embeds each text at a deterministic unit vector: component 0
// encodes nothing, the call order does. Overrides let tests break the shape
// contract on purpose.
type fakeClient struct {
	dim      int
	calls    int
	batches  [][]string
	override func(texts []string) ([][]float32, error)
}

func (c *fakeClient) Model() string  { return "fake-model" }
func (c *fakeClient) Dimension() int { return c.dim }

func (c *fakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.batches = append(c.batches, texts)
	if c.override != nil {
		return c.override(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, c.dim)
		vec[0] = 1 // unit vector along the first axis
		out[i] = vec
	}
	return out, nil
}

func records(n int) []domain.CaseRecord {
	out := make([]domain.CaseRecord, n)
	for i := range out {
		out[i] = domain.CaseRecord{
			ID:       fmt.Sprintf("id%03d", i),
			CaseName: fmt.Sprintf("Case %d", i),
		}
	}
	return out
}

func TestEmbedAllPreservesOrderAcrossBatches(t *testing.T) {
	client := &fakeClient{dim: 4}
	e := &Embedder{Client: client, BatchSize: 3}

	recs := records(8)
	items, err := e.EmbedAll(context.Background(), recs)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(items) != len(recs) {
		t.Fatalf("got %d items, want %d", len(items), len(recs))
	}
	for i, it := range items {
		if it.ID != recs[i].ID {
			t.Fatalf("item %d id = %q, want %q", i, it.ID, recs[i].ID)
		}
		if len(it.Embedding) != 4 {
			t.Fatalf("item %d dim = %d", i, len(it.Embedding))
		}
	}
	if client.calls != 3 {
		t.Fatalf("client called %d times, want 3 batches of [3 3 2]", client.calls)
	}
	if len(client.batches[2]) != 2 {
		t.Fatalf("final batch size = %d, want 2", len(client.batches[2]))
	}
}

func TestEmbedAllSendsEmbedText(t *testing.T) {
	client := &fakeClient{dim: 2}
	e := &Embedder{Client: client}

	recs := []domain.CaseRecord{
		{ID: "a", CaseName: "Smith v. Jones", Docket: "21-1"},
		{ID: "b"}, // empty embed text is still embedded
	}
	items, err := e.EmbedAll(context.Background(), recs)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if got := client.batches[0][0]; got != "Smith v. Jones | 21-1" {
		t.Fatalf("sent text %q", got)
	}
	if got := client.batches[0][1]; got != "" {
		t.Fatalf("empty record sent text %q, want empty string", got)
	}
}

func TestEmbedAllCountViolationFatal(t *testing.T) {
	client := &fakeClient{dim: 2}
	client.override = func(texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil // one vector short
	}
	e := &Embedder{Client: client}

	_, err := e.EmbedAll(context.Background(), records(2))
	if !errors.Is(err, domain.ErrEmbedCount) {
		t.Fatalf("err = %v, want ErrEmbedCount", err)
	}
}

func TestEmbedAllDimensionViolationFatal(t *testing.T) {
	client := &fakeClient{dim: 4}
	client.override = func(texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil // wrong width
	}
	e := &Embedder{Client: client}

	_, err := e.EmbedAll(context.Background(), records(1))
	if !errors.Is(err, domain.ErrEmbedDimension) {
		t.Fatalf("err = %v, want ErrEmbedDimension", err)
	}
}

func TestEmbedAllNormViolationFatal(t *testing.T) {
	client := &fakeClient{dim: 2}
	client.override = func(texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil // norm 5
	}
	e := &Embedder{Client: client}

	_, err := e.EmbedAll(context.Background(), records(1))
	if !errors.Is(err, domain.ErrEmbedNorm) {
		t.Fatalf("err = %v, want ErrEmbedNorm", err)
	}
	var inv *domain.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("err %v is not an InvariantError", err)
	}
}

func TestEmbedAllClientErrorWrapped(t *testing.T) {
	boom := errors.New("model offline")
	client := &fakeClient{dim: 2, override: func([]string) ([][]float32, error) { return nil, boom }}
	e := &Embedder{Client: client}

	_, err := e.EmbedAll(context.Background(), records(1))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped client error", err)
	}
}
