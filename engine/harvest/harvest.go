// Package harvest drives external court scrapers, applies the recency
// filter, and writes the per-court record stores. Courts are independent:
// one court's failure never stops the others.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/engine/identity"
	"github.com/docketwatch/docketwatch/engine/scraper"
	"github.com/docketwatch/docketwatch/engine/store"
	"github.com/docketwatch/docketwatch/pkg/fn"
)

// Harvester fetches recent opinions for a set of courts.
type Harvester struct {
	Registry *scraper.Registry
	Store    *store.Dir
	// Publish, when set, receives every kept record as it is assembled.
	// Publish failures are logged, not fatal; the durable store is the
	// source of truth.
	Publish func(ctx context.Context, rec domain.CaseRecord) error
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	Log *slog.Logger
}

// CourtResult summarizes one court's harvest.
type CourtResult struct {
	Court   string
	Written int
	Skipped int // records excluded by the recency filter
	Err     error
}

// RunSummary aggregates per-court results for one harvest run.
type RunSummary struct {
	Results []CourtResult
}

// Written returns the total records written across all courts.
func (s RunSummary) Written() int {
	n := 0
	for _, r := range s.Results {
		n += r.Written
	}
	return n
}

// Failed returns the courts whose harvest failed.
func (s RunSummary) Failed() []CourtResult {
	return fn.Filter(s.Results, func(r CourtResult) bool { return r.Err != nil })
}

func (h *Harvester) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Harvester) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// ValidateCourts rejects a court set whose paths collapse to the same store
// slug; silently merging two courts' stores would corrupt both.
func ValidateCourts(courts []string) error {
	seen := make(map[string]string, len(courts))
	for _, c := range courts {
		slug := identity.Slugify(c)
		if prev, ok := seen[slug]; ok && prev != c {
			return fmt.Errorf("%w: %q and %q both map to %q", domain.ErrSlugCollision, prev, c, slug)
		}
		seen[slug] = c
	}
	return nil
}

// HarvestOne fetches recent opinions for one court and replaces its store
// file with the kept records. Records dated strictly before today minus
// daysBack are skipped; records without a usable date are kept. At most
// limit records are kept, in the scraper's native order.
func (h *Harvester) HarvestOne(ctx context.Context, courtPath string, daysBack, limit int) CourtResult {
	res := CourtResult{Court: courtPath}

	site, err := h.Registry.New(courtPath)
	if err != nil {
		res.Err = err
		return res
	}
	if err := site.Parse(ctx); err != nil {
		res.Err = fmt.Errorf("parse %s: %w", courtPath, err)
		return res
	}

	cutoff := h.now().UTC().AddDate(0, 0, -daysBack).Format(domain.DateLayout)

	records := make([]domain.CaseRecord, 0, limit)
	for i := 0; i < site.Count(); i++ {
		rec := buildRecord(site, courtPath, i)
		if tooOld(rec.DateFiled, cutoff) {
			res.Skipped++
			continue
		}
		records = append(records, rec)
		if h.Publish != nil {
			if err := h.Publish(ctx, rec); err != nil {
				h.log().Warn("harvest: publish failed", "court", courtPath, "id", rec.ID, "error", err)
			}
		}
		if len(records) >= limit {
			break
		}
	}

	path, err := h.Store.WriteCourt(courtPath, records)
	if err != nil {
		res.Err = err
		return res
	}

	res.Written = len(records)
	h.log().Info("harvest: court done", "court", courtPath, "written", res.Written, "skipped", res.Skipped, "file", path)
	return res
}

// HarvestAll runs the courts on bounded parallel workers. Per-court stores
// share nothing, so no coordination is needed beyond waiting for all workers.
// Returns an error only for an invalid court set; individual court failures
// are carried in the summary.
func (h *Harvester) HarvestAll(ctx context.Context, courts []string, daysBack, limit, workers int) (RunSummary, error) {
	if err := ValidateCourts(courts); err != nil {
		return RunSummary{}, err
	}
	results := fn.ParMap(courts, workers, func(court string) CourtResult {
		return h.HarvestOne(ctx, court, daysBack, limit)
	})
	return RunSummary{Results: results}, nil
}

// buildRecord assembles a CaseRecord from one scraper result index. A field
// the scraper cannot supply degrades to absent; it never aborts the record.
func buildRecord(site scraper.Site, courtPath string, i int) domain.CaseRecord {
	name, _ := site.CaseName(i)
	download, _ := site.DownloadURL(i)

	rec := domain.CaseRecord{
		ID:          identity.CaseID(courtPath, name, download),
		CourtPath:   courtPath,
		CaseName:    name,
		DownloadURL: download,
	}
	rec.Docket, _ = site.DocketNumber(i)
	rec.PrecedentialStatus, _ = site.PrecedentialStatus(i)
	rec.NeutralCitation, _ = site.NeutralCitation(i)
	rec.Summary, _ = site.Summary(i)
	if d, ok := site.CaseDate(i); ok {
		rec.DateFiled = d.Format(domain.DateLayout)
	}
	// Case detail URL wins; the listing page URL is the fallback.
	if u, ok := site.CaseNameURL(i); ok && u != "" {
		rec.SourceURL = u
	} else {
		rec.SourceURL, _ = site.PageURL(i)
	}
	return rec
}

// tooOld reports whether a filing date falls strictly before the cutoff.
// Absent or unparseable dates fail open: the record is kept, since the
// filterable signal is simply unavailable.
func tooOld(dateFiled, cutoff string) bool {
	if dateFiled == "" {
		return false
	}
	if _, err := time.Parse(domain.DateLayout, dateFiled); err != nil {
		return false
	}
	return dateFiled < cutoff
}
