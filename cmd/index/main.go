// Command index embeds every stored case record and writes a sharded
// semantic index: fixed-size JSON shards plus a manifest written last.
// It can also mirror the embedded corpus into Qdrant and announce
// finished builds on NATS.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/engine/embed"
	"github.com/docketwatch/docketwatch/engine/index"
	"github.com/docketwatch/docketwatch/engine/semantic"
	"github.com/docketwatch/docketwatch/engine/store"
	"github.com/docketwatch/docketwatch/pkg/fn"
	"github.com/docketwatch/docketwatch/pkg/metrics"
	"github.com/docketwatch/docketwatch/pkg/natsutil"
	"github.com/docketwatch/docketwatch/pkg/ollama"
	"github.com/nats-io/nats.go"
)

var met = metrics.New()

var (
	mLoaded   = met.Counter("docketwatch_index_records_loaded_total", "Records read from the store")
	mSkipped  = met.Counter("docketwatch_index_records_skipped_total", "Malformed store lines skipped")
	mEmbedded = met.Counter("docketwatch_index_records_embedded_total", "Records embedded")
	mShards   = met.Gauge("docketwatch_index_shards", "Shards in the last build")
	mDuration = met.Histogram("docketwatch_index_build_duration_seconds", "Full index build time", nil)
	mLastRun  = met.Gauge("docketwatch_index_last_build_timestamp", "Epoch of last index build")
)

// buildEvent announces a finished index build to downstream consumers.
type buildEvent struct {
	Model   string    `json:"model"`
	Dim     int       `json:"dim"`
	Total   int       `json:"total"`
	Shards  int       `json:"shards"`
	BuiltAt time.Time `json:"built_at"`
}

func main() {
	var (
		storeDir    = flag.String("store", "data", "per-court store directory")
		outDir      = flag.String("out", "index", "index output directory")
		ollamaURL   = flag.String("ollama", envOr("OLLAMA_URL", "http://localhost:11434"), "Ollama base URL")
		model       = flag.String("model", "all-minilm", "embedding model")
		dim         = flag.Int("dim", 384, "embedding dimensionality")
		batch       = flag.Int("batch", embed.DefaultBatchSize, "embedding batch size")
		shardSize   = flag.Int("shard-size", index.DefaultShardSize, "items per shard")
		qdrantAddr  = flag.String("qdrant", envOr("QDRANT_ADDR", ""), "Qdrant gRPC address (empty = no mirror)")
		collection  = flag.String("collection", "docketwatch_cases", "Qdrant collection")
		natsURL     = flag.String("nats", envOr("NATS_URL", ""), "NATS URL (empty = no build event)")
		subject     = flag.String("subject", "docketwatch.index.builds", "NATS subject for build events")
		metricsPort = flag.Int("metrics-port", 9094, "metrics listen port")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.CollectRuntime("docketwatch_index", 15*time.Second)
	met.ServeAsync(*metricsPort)

	dir, err := store.Open(*storeDir)
	if err != nil {
		log.Error("index: open store", "error", err)
		os.Exit(1)
	}

	embedder := &embed.Embedder{
		Client:    ollama.New(*ollamaURL, *model, *dim),
		BatchSize: *batch,
		Log:       log,
	}
	writer := &index.Writer{
		OutDir:    *outDir,
		ShardSize: *shardSize,
		Model:     *model,
		Dim:       *dim,
	}

	load := fn.TracedStage("index.load", func(ctx context.Context, _ struct{}) fn.Result[[]domain.CaseRecord] {
		located, skipped, err := dir.LoadAll()
		if err != nil {
			return fn.Err[[]domain.CaseRecord](err)
		}
		mLoaded.Add(int64(len(located)))
		mSkipped.Add(int64(skipped))
		if skipped > 0 {
			log.Warn("index: skipped malformed store lines", "skipped", skipped)
		}
		records := fn.Map(located, func(l store.Located) domain.CaseRecord { return l.Record })
		return fn.Ok(records)
	})

	embedStage := fn.TracedStage("index.embed", func(ctx context.Context, records []domain.CaseRecord) fn.Result[[]domain.EmbeddedItem] {
		items, err := embedder.EmbedAll(ctx, records)
		if err != nil {
			return fn.Err[[]domain.EmbeddedItem](err)
		}
		mEmbedded.Add(int64(len(items)))
		return fn.Ok(items)
	})

	// Mirror is a pass-through so the shard writer still sees every item.
	mirror := fn.TracedStage("index.mirror", func(ctx context.Context, items []domain.EmbeddedItem) fn.Result[[]domain.EmbeddedItem] {
		if *qdrantAddr == "" {
			return fn.Ok(items)
		}
		vs, err := semantic.New(*qdrantAddr, *collection)
		if err != nil {
			return fn.Err[[]domain.EmbeddedItem](err)
		}
		defer vs.Close()
		if err := vs.Reset(ctx, *dim); err != nil {
			return fn.Err[[]domain.EmbeddedItem](err)
		}
		if err := vs.UpsertItems(ctx, items); err != nil {
			return fn.Err[[]domain.EmbeddedItem](err)
		}
		log.Info("index: mirrored to qdrant", "collection", *collection, "items", len(items))
		return fn.Ok(items)
	})

	write := fn.TracedStage("index.write", func(ctx context.Context, items []domain.EmbeddedItem) fn.Result[domain.Manifest] {
		manifest, err := writer.Write(items)
		if err != nil {
			return fn.Err[domain.Manifest](err)
		}
		return fn.Ok(manifest)
	})

	pipeline := fn.Then(fn.Then(fn.Then(load, embedStage), mirror), write)

	start := time.Now()
	manifest, err := pipeline(ctx, struct{}{}).Unwrap()
	if err != nil {
		log.Error("index: build failed", "error", err)
		os.Exit(1)
	}
	mDuration.Since(start)
	mLastRun.Set(time.Now().Unix())
	mShards.Set(int64(len(manifest.Shards)))
	log.Info("index: build done",
		"total", manifest.Total, "shards", len(manifest.Shards),
		"model", manifest.Model, "dim", manifest.Dim, "duration", time.Since(start))

	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("index: nats connect", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		event := buildEvent{
			Model:   manifest.Model,
			Dim:     manifest.Dim,
			Total:   manifest.Total,
			Shards:  len(manifest.Shards),
			BuiltAt: time.Now().UTC(),
		}
		if err := natsutil.Publish(ctx, nc, *subject, event); err != nil {
			log.Error("index: publish build event", "error", err)
			os.Exit(1)
		}
		log.Info("index: build event published", "subject", *subject)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
