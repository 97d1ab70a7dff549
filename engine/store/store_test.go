package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/docketwatch/docketwatch/engine/domain"
)

func testRecords(n int) []domain.CaseRecord {
	out := make([]domain.CaseRecord, n)
	for i := range out {
		out[i] = domain.CaseRecord{
			ID:          string(rune('a' + i)),
			CourtPath:   "united_states.federal_appellate.ca9_p",
			CaseName:    "Case " + string(rune('A'+i)),
			DateFiled:   "2026-08-20",
			DownloadURL: "https://example.com/" + string(rune('a'+i)) + ".pdf",
		}
	}
	return out
}

func TestWriteCourtRoundtrip(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	records := testRecords(3)

	path, err := dir.WriteCourt("united_states.federal_appellate.ca9_p", records)
	if err != nil {
		t.Fatalf("WriteCourt: %v", err)
	}
	if filepath.Base(path) != "united_states-federal_appellate-ca9_p.jsonl" {
		t.Fatalf("store file named %q", filepath.Base(path))
	}

	located, skipped, err := dir.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(located) != len(records) {
		t.Fatalf("loaded %d records, want %d", len(located), len(records))
	}
	for i, l := range located {
		if l.Record != records[i] {
			t.Fatalf("record %d = %+v, want %+v", i, l.Record, records[i])
		}
		if l.Source != "united_states-federal_appellate-ca9_p" {
			t.Fatalf("record %d source = %q", i, l.Source)
		}
	}
}

func TestWriteCourtReplacesWholeFile(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := dir.WriteCourt("ct", testRecords(5)); err != nil {
		t.Fatalf("first WriteCourt: %v", err)
	}
	if _, err := dir.WriteCourt("ct", testRecords(2)); err != nil {
		t.Fatalf("second WriteCourt: %v", err)
	}
	located, _, err := dir.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(located) != 2 {
		t.Fatalf("loaded %d records after replace, want 2", len(located))
	}
}

func TestWalkSkipsMalformedLines(t *testing.T) {
	tmp := t.TempDir()
	dir, err := Open(tmp)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content := `{"id":"a","court_path":"ct","case_name":"A"}
not json at all
{"id":"b","court_path":"ct","case_name":"B"}

{broken
`
	if err := os.WriteFile(filepath.Join(tmp, "ct.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var ids []string
	skipped, err := dir.Walk(func(l Located) { ids = append(ids, l.Record.ID) })
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if skipped != 2 {
		t.Fatalf("skipped = %d, want 2", skipped)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v, want [a b]", ids)
	}
}

func TestWalkOrdersFilesByName(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := dir.WriteCourt("zz_court", testRecords(1)); err != nil {
		t.Fatalf("WriteCourt: %v", err)
	}
	if _, err := dir.WriteCourt("aa_court", testRecords(1)); err != nil {
		t.Fatalf("WriteCourt: %v", err)
	}
	var sources []string
	if _, err := dir.Walk(func(l Located) { sources = append(sources, l.Source) }); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sources) != 2 || sources[0] != "aa_court" || sources[1] != "zz_court" {
		t.Fatalf("sources = %v, want [aa_court zz_court]", sources)
	}
}
