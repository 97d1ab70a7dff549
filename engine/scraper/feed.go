package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/pkg/fn"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// feedDoc is the wire format a scraper service exposes per court: parallel
// field arrays in the scraper's native (most-recent-first) order. Arrays may
// be shorter than case_names; missing entries degrade to absent fields.
type feedDoc struct {
	CaseNames            []string `json:"case_names"`
	CaseDates            []string `json:"case_dates"`
	DocketNumbers        []string `json:"docket_numbers"`
	PrecedentialStatuses []string `json:"precedential_statuses"`
	NeutralCitations     []string `json:"neutral_citations"`
	Summaries            []string `json:"summaries"`
	DownloadURLs         []string `json:"download_urls"`
	CaseNameURLs         []string `json:"case_name_urls"`
	URLs                 []string `json:"urls"`
}

// FeedConfig configures a FeedSite.
type FeedConfig struct {
	// URL of the court's feed document.
	URL string
	// Limiter paces fetches; shared across sites when harvesting in parallel.
	Limiter *rate.Limiter
	// Retry controls fetch retries. Zero value means fn.DefaultRetry.
	Retry fn.RetryOpts
	// Client overrides the HTTP client.
	Client *http.Client
}

// FeedSite bridges an external scraper service into the Site contract. The
// service does the source-specific parsing; FeedSite only fetches and indexes
// the resulting field arrays.
type FeedSite struct {
	cfg   FeedConfig
	doc   feedDoc
	dates []time.Time
	ok    []bool // dates[i] parsed
}

// NewFeedSite creates a FeedSite for one court feed URL.
func NewFeedSite(cfg FeedConfig) *FeedSite {
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = fn.DefaultRetry
	}
	return &FeedSite{cfg: cfg}
}

// Parse fetches and decodes the feed document.
func (s *FeedSite) Parse(ctx context.Context) error {
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	result := fn.Retry(ctx, s.cfg.Retry, func(ctx context.Context) fn.Result[feedDoc] {
		return s.fetch(ctx)
	})
	doc, err := result.Unwrap()
	if err != nil {
		return fmt.Errorf("feed %s: %w", s.cfg.URL, err)
	}

	s.doc = doc
	s.dates = make([]time.Time, len(doc.CaseDates))
	s.ok = make([]bool, len(doc.CaseDates))
	for i, d := range doc.CaseDates {
		if t, err := time.Parse(domain.DateLayout, d); err == nil {
			s.dates[i] = t
			s.ok[i] = true
		}
	}
	return nil
}

func (s *FeedSite) fetch(ctx context.Context) fn.Result[feedDoc] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return fn.Err[feedDoc](err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "docketwatch-harvest/1.0")

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return fn.Err[feedDoc](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fn.Err[feedDoc](fmt.Errorf("http %d", resp.StatusCode))
	}

	var doc feedDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fn.Err[feedDoc](fmt.Errorf("decode: %w", err))
	}
	return fn.Ok(doc)
}

// Count returns the size of the result set.
func (s *FeedSite) Count() int { return len(s.doc.CaseNames) }

func at(xs []string, i int) (string, bool) {
	if i < 0 || i >= len(xs) {
		return "", false
	}
	return xs[i], true
}

func (s *FeedSite) CaseName(i int) (string, bool)           { return at(s.doc.CaseNames, i) }
func (s *FeedSite) DocketNumber(i int) (string, bool)       { return at(s.doc.DocketNumbers, i) }
func (s *FeedSite) PrecedentialStatus(i int) (string, bool) { return at(s.doc.PrecedentialStatuses, i) }
func (s *FeedSite) NeutralCitation(i int) (string, bool)    { return at(s.doc.NeutralCitations, i) }
func (s *FeedSite) Summary(i int) (string, bool)            { return at(s.doc.Summaries, i) }
func (s *FeedSite) DownloadURL(i int) (string, bool)        { return at(s.doc.DownloadURLs, i) }
func (s *FeedSite) CaseNameURL(i int) (string, bool)        { return at(s.doc.CaseNameURLs, i) }
func (s *FeedSite) PageURL(i int) (string, bool)            { return at(s.doc.URLs, i) }

// CaseDate returns the parsed filing date; unparseable or missing dates are
// reported as absent.
func (s *FeedSite) CaseDate(i int) (time.Time, bool) {
	if i < 0 || i >= len(s.dates) || !s.ok[i] {
		return time.Time{}, false
	}
	return s.dates[i], true
}

var _ Site = (*FeedSite)(nil)
