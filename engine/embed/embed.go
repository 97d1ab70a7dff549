// Package embed turns case records into embedded items via an external
// embedding model, enforcing the build's shape invariants: output is
// one-to-one with input, order-preserving, and every vector has the model's
// declared dimension.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/pkg/fn"
)

// Client is the external embedding capability: order-aligned, fixed-length,
// L2-normalized vectors for a batch of texts. The model must accept empty
// input strings.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// DefaultBatchSize amortizes model invocation cost without unbounded memory.
// Batch size is a tunable, not a correctness parameter.
const DefaultBatchSize = 64

// normTolerance allows for float32 rounding in the L2 norm check.
const normTolerance = 1e-3

// Embedder maps records to embedded items in fixed-size sub-batches.
type Embedder struct {
	Client    Client
	BatchSize int
	Log       *slog.Logger
}

func (e *Embedder) batchSize() int {
	if e.BatchSize > 0 {
		return e.BatchSize
	}
	return DefaultBatchSize
}

func (e *Embedder) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// EmbedAll embeds every record, one-to-one and order-preserving. A record
// whose embed text is empty is still embedded, so downstream counts and
// positions never shift. Any shape violation from the model is fatal to the
// whole build.
func (e *Embedder) EmbedAll(ctx context.Context, records []domain.CaseRecord) ([]domain.EmbeddedItem, error) {
	dim := e.Client.Dimension()
	items := make([]domain.EmbeddedItem, 0, len(records))

	for _, batch := range fn.Chunk(records, e.batchSize()) {
		texts := fn.Map(batch, domain.CaseRecord.EmbedText)

		vecs, err := e.Client.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", len(items), err)
		}
		if len(vecs) != len(batch) {
			return nil, domain.NewInvariantError("embedding count",
				fmt.Sprint(len(batch)), fmt.Sprint(len(vecs)), domain.ErrEmbedCount)
		}
		for j, vec := range vecs {
			if len(vec) != dim {
				return nil, domain.NewInvariantError("embedding dimension",
					fmt.Sprint(dim), fmt.Sprintf("%d at item %d", len(vec), len(items)+j), domain.ErrEmbedDimension)
			}
			if n := norm(vec); math.Abs(n-1) > normTolerance {
				return nil, domain.NewInvariantError("embedding norm",
					"1.0", fmt.Sprintf("%.6f at item %d", n, len(items)+j), domain.ErrEmbedNorm)
			}
			items = append(items, domain.EmbeddedItem{CaseRecord: batch[j], Embedding: vec})
		}
		e.log().Debug("embed: batch done", "batch", len(batch), "total", len(items))
	}
	return items, nil
}

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
