// Package store reads and writes the per-court JSONL record stores. Each
// court owns one file named by its slug; a harvest run replaces the whole
// file via temp-file rename so a crash never leaves a truncated store
// visible.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/engine/identity"
)

const storeExt = ".jsonl"

// maxLineBytes bounds a single stored record; summaries can run long.
const maxLineBytes = 4 * 1024 * 1024

// Dir is one store directory holding per-court record files.
type Dir struct {
	path string
}

// Open ensures the store directory exists and returns it.
func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", path, err)
	}
	return &Dir{path: path}, nil
}

// Path returns the store directory path.
func (d *Dir) Path() string { return d.path }

// WriteCourt replaces the court's store file with the given records, one
// JSON document per line. Returns the file path written.
func (d *Dir) WriteCourt(courtPath string, records []domain.CaseRecord) (string, error) {
	name := identity.Slugify(courtPath) + storeExt
	final := filepath.Join(d.path, name)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("store: encode record %s: %w", rec.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("store: flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("store: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("store: rename %s: %w", final, err)
	}
	return final, nil
}

// Located pairs a decoded record with the stem of the store file it came
// from, as a provenance tag.
type Located struct {
	Record domain.CaseRecord
	Source string
}

// Walk streams every record in every per-court store file, in sorted file
// order. Malformed lines are skipped and counted, never fatal. Walk is
// re-invocable; each call is an independent pass.
func (d *Dir) Walk(visit func(Located)) (skipped int, err error) {
	files, err := filepath.Glob(filepath.Join(d.path, "*"+storeExt))
	if err != nil {
		return 0, fmt.Errorf("store: glob %s: %w", d.path, err)
	}
	sort.Strings(files)

	for _, path := range files {
		n, err := walkFile(path, visit)
		skipped += n
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func walkFile(path string, visit func(Located)) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	source := strings.TrimSuffix(filepath.Base(path), storeExt)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.CaseRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		visit(Located{Record: rec, Source: source})
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("store: scan %s: %w", path, err)
	}
	return skipped, nil
}

// LoadAll reads the whole corpus eagerly. Returns the records in file order,
// the number of malformed lines skipped, and any I/O error.
func (d *Dir) LoadAll() ([]Located, int, error) {
	var out []Located
	skipped, err := d.Walk(func(l Located) {
		out = append(out, l)
	})
	if err != nil {
		return nil, skipped, err
	}
	return out, skipped, nil
}
