// Package scraper defines the contract for external per-court scraping
// capabilities and a registry keyed by dotted court path.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/docketwatch/docketwatch/engine/domain"
)

// Site is one court scraper. Parse must be called once before any field
// accessor. Accessors return ok=false when the field is unavailable at that
// index; implementations must never panic on out-of-range access.
type Site interface {
	Parse(ctx context.Context) error
	Count() int
	CaseName(i int) (string, bool)
	CaseDate(i int) (time.Time, bool)
	DocketNumber(i int) (string, bool)
	PrecedentialStatus(i int) (string, bool)
	NeutralCitation(i int) (string, bool)
	Summary(i int) (string, bool)
	DownloadURL(i int) (string, bool)
	CaseNameURL(i int) (string, bool)
	PageURL(i int) (string, bool)
}

// Constructor builds a fresh Site for one harvest run.
type Constructor func() Site

// Registry maps dotted court paths to Site constructors.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]Constructor)}
}

// Register adds a constructor for a court path, replacing any previous one.
func (r *Registry) Register(courtPath string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[courtPath] = c
}

// New constructs a Site for the given court path.
func (r *Registry) New(courtPath string) (Site, error) {
	r.mu.RLock()
	c, ok := r.sites[courtPath]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCourt, courtPath)
	}
	return c(), nil
}

// Courts returns the registered court paths in sorted order.
func (r *Registry) Courts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sites))
	for c := range r.sites {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
