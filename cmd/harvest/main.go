// Command harvest fetches recent opinions for a set of courts through an
// external scraper service and writes per-court JSONL stores, optionally
// publishing kept records to NATS.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/engine/harvest"
	"github.com/docketwatch/docketwatch/engine/scraper"
	"github.com/docketwatch/docketwatch/engine/store"
	"github.com/docketwatch/docketwatch/pkg/metrics"
	"github.com/docketwatch/docketwatch/pkg/natsutil"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

// defaultCourts are reliable federal appellate scrapers, a safe starter set.
const defaultCourts = "united_states.federal_appellate.ca9_p," +
	"united_states.federal_appellate.cafc," +
	"united_states.federal_appellate.ca5," +
	"united_states.federal_appellate.ca2_p," +
	"united_states.federal_appellate.scotus_slip"

var met = metrics.New()

var (
	mRecords = func(court string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("docketwatch_harvest_records_total", "court", court), "Records written by court")
	}
	mSkipped = func(court string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("docketwatch_harvest_skipped_total", "court", court), "Records excluded by recency filter")
	}
	mErrors = func(court string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("docketwatch_harvest_errors_total", "court", court), "Failed court harvests")
	}
	mDuration = met.Histogram("docketwatch_harvest_run_duration_seconds", "Full harvest run time", nil)
	mLastRun  = met.Gauge("docketwatch_harvest_last_run_timestamp", "Epoch of last harvest run")
)

func main() {
	var (
		courtsFlag  = flag.String("courts", defaultCourts, "comma-separated court scraper paths")
		daysBack    = flag.Int("days-back", 7, "keep only opinions filed within this many days")
		limit       = flag.Int("limit", 200, "max records kept per court")
		storeDir    = flag.String("store", "data", "per-court store directory")
		workers     = flag.Int("workers", 4, "parallel court harvests")
		feedBase    = flag.String("feed-base", envOr("DOCKETWATCH_FEED_BASE", ""), "base URL of the scraper feed service; the court path is appended")
		feedRPS     = flag.Float64("feed-rps", 1, "max feed fetches per second across all courts")
		natsURL     = flag.String("nats", envOr("NATS_URL", ""), "NATS URL (empty = no publishing)")
		subject     = flag.String("subject", "docketwatch.harvest.records", "NATS subject for kept records")
		interval    = flag.Duration("interval", 0, "polling interval (0 = one-shot)")
		metricsPort = flag.Int("metrics-port", 9093, "metrics listen port")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *feedBase == "" {
		log.Error("harvest: -feed-base (or DOCKETWATCH_FEED_BASE) is required")
		os.Exit(2)
	}

	met.CollectRuntime("docketwatch_harvest", 15*time.Second)
	met.ServeAsync(*metricsPort)

	courts := splitCourts(*courtsFlag)
	if err := harvest.ValidateCourts(courts); err != nil {
		log.Error("harvest: invalid court set", "error", err)
		os.Exit(2)
	}

	limiter := rate.NewLimiter(rate.Limit(*feedRPS), 1)
	registry := scraper.NewRegistry()
	for _, court := range courts {
		url := strings.TrimRight(*feedBase, "/") + "/" + court
		registry.Register(court, func() scraper.Site {
			return scraper.NewFeedSite(scraper.FeedConfig{URL: url, Limiter: limiter})
		})
	}

	dir, err := store.Open(*storeDir)
	if err != nil {
		log.Error("harvest: open store", "error", err)
		os.Exit(1)
	}

	var publish func(context.Context, domain.CaseRecord) error
	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("harvest: nats connect", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		publish = func(ctx context.Context, rec domain.CaseRecord) error {
			return natsutil.Publish(ctx, nc, *subject, rec)
		}
		log.Info("harvest: publishing records", "subject", *subject)
	}

	h := &harvest.Harvester{
		Registry: registry,
		Store:    dir,
		Publish:  publish,
		Log:      log,
	}

	run := func() bool {
		start := time.Now()
		summary, err := h.HarvestAll(ctx, courts, *daysBack, *limit, *workers)
		if err != nil {
			log.Error("harvest: run aborted", "error", err)
			return false
		}
		mDuration.Since(start)
		mLastRun.Set(time.Now().Unix())

		for _, r := range summary.Results {
			if r.Err != nil {
				mErrors(r.Court).Inc()
				log.Error("harvest: court failed", "court", r.Court, "error", r.Err)
				continue
			}
			mRecords(r.Court).Add(int64(r.Written))
			mSkipped(r.Court).Add(int64(r.Skipped))
		}
		failed := summary.Failed()
		log.Info("harvest: run done",
			"courts", len(courts), "failed", len(failed),
			"written", summary.Written(), "duration", time.Since(start))
		return len(failed) < len(courts)
	}

	if ok := run(); !ok && *interval <= 0 {
		os.Exit(1)
	}
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("harvest: shutting down")
			return
		case <-ticker.C:
			run()
		}
	}
}

func splitCourts(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
