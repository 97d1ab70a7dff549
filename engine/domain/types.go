// Package domain defines the core entities of the docketwatch pipeline:
// scraped case records, their embedded form, and the sharded index layout.
package domain

import "strings"

// DateLayout is the wire format for filing dates.
const DateLayout = "2006-01-02"

// embedTextSep joins the embed-text fields.
const embedTextSep = " | "

// CaseRecord is one scraped court opinion. Every descriptive field may be
// empty; absence is the zero value, never an error. Records are append-only:
// a re-harvest of the same logical case yields a new record with the same ID.
type CaseRecord struct {
	ID                 string `json:"id"`
	CourtPath          string `json:"court_path"`
	CaseName           string `json:"case_name"`
	Docket             string `json:"docket"`
	DateFiled          string `json:"date_filed"` // YYYY-MM-DD, empty when unknown
	PrecedentialStatus string `json:"precedential_status"`
	NeutralCitation    string `json:"neutral_citation"`
	Summary            string `json:"summary"`
	DownloadURL        string `json:"download_url"`
	SourceURL          string `json:"source_url"`
}

// EmbedText derives the embedding input: the non-empty descriptive fields in
// fixed order, joined with " | ". Deterministic for a given record; may be
// empty when every contributing field is absent.
func (r CaseRecord) EmbedText() string {
	fields := []string{r.CaseName, r.Docket, r.NeutralCitation, r.PrecedentialStatus, r.Summary}
	var kept []string
	for _, f := range fields {
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, embedTextSep)
}

// EmbeddedItem is a CaseRecord plus its embedding vector. The derived embed
// text is not persisted; only the record fields and the vector are.
type EmbeddedItem struct {
	CaseRecord
	Embedding []float32 `json:"embedding"`
}

// Shard is one bounded partition of the embedded corpus, stored as a
// standalone retrievable document.
type Shard struct {
	ShardID string         `json:"shard_id"`
	Model   string         `json:"model"`
	Dim     int            `json:"dim"`
	Count   int            `json:"count"`
	Items   []EmbeddedItem `json:"items"`
}

// Manifest describes one complete index build. It is written after all
// shards; an index directory without a matching manifest is invalid.
type Manifest struct {
	Model  string   `json:"model"`
	Dim    int      `json:"dim"`
	Total  int      `json:"total"`
	Shards []string `json:"shards"`
}
