// Package index partitions an embedded corpus into fixed-size shards sized
// for cheap incremental fetch, and maintains the build manifest. The
// manifest is written last: an index directory without a matching manifest
// is a build in progress, never partially usable.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docketwatch/docketwatch/engine/domain"
	"github.com/docketwatch/docketwatch/pkg/fn"
)

// DefaultShardSize keeps shard documents small enough for consumers that can
// only pull bounded-size JSON.
const DefaultShardSize = 800

const manifestFile = "manifest.json"

// Writer writes one index build into an output directory, fully superseding
// any previous build there.
type Writer struct {
	OutDir    string
	ShardSize int
	Model     string
	Dim       int
}

func (w *Writer) shardSize() int {
	if w.ShardSize > 0 {
		return w.ShardSize
	}
	return DefaultShardSize
}

// Write partitions items into consecutive groups of at most ShardSize,
// preserving order, writes each shard document, and finally the manifest.
func (w *Writer) Write(items []domain.EmbeddedItem) (domain.Manifest, error) {
	if err := os.MkdirAll(w.OutDir, 0o755); err != nil {
		return domain.Manifest{}, fmt.Errorf("index: create %s: %w", w.OutDir, err)
	}

	groups := fn.Chunk(items, w.shardSize())
	shardIDs := make([]string, 0, len(groups))
	for k, group := range groups {
		id := shardID(k)
		shard := domain.Shard{
			ShardID: id,
			Model:   w.Model,
			Dim:     w.Dim,
			Count:   len(group),
			Items:   group,
		}
		if err := writeJSON(filepath.Join(w.OutDir, id+".json"), shard); err != nil {
			return domain.Manifest{}, fmt.Errorf("index: shard %s: %w", id, err)
		}
		shardIDs = append(shardIDs, id)
	}

	manifest := domain.Manifest{
		Model:  w.Model,
		Dim:    w.Dim,
		Total:  len(items),
		Shards: shardIDs,
	}
	if err := writeJSON(filepath.Join(w.OutDir, manifestFile), manifest); err != nil {
		return domain.Manifest{}, fmt.Errorf("index: manifest: %w", err)
	}
	return manifest, nil
}

func shardID(k int) string {
	return fmt.Sprintf("shard_%04d", k)
}

// writeJSON writes via temp file + rename so a crash mid-write never leaves
// a truncated document under the final name.
func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadManifest loads and validates the manifest: every listed shard file
// must exist. Stale shard files a previous larger build left behind are
// ignored; only the manifest's shard list is trusted.
func ReadManifest(dir string) (domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("index: read manifest: %w", err)
	}
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("index: decode manifest: %w", err)
	}
	for _, id := range m.Shards {
		if _, err := os.Stat(filepath.Join(dir, id+".json")); err != nil {
			return domain.Manifest{}, fmt.Errorf("%w: shard %s missing", domain.ErrManifestStale, id)
		}
	}
	return m, nil
}

// ReadShard loads one shard document and checks its count invariant.
func ReadShard(dir, id string) (domain.Shard, error) {
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		return domain.Shard{}, fmt.Errorf("index: read shard %s: %w", id, err)
	}
	var s domain.Shard
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Shard{}, fmt.Errorf("index: decode shard %s: %w", id, err)
	}
	if s.Count != len(s.Items) {
		return domain.Shard{}, domain.NewInvariantError("shard count",
			fmt.Sprint(s.Count), fmt.Sprint(len(s.Items)), domain.ErrManifestStale)
	}
	return s, nil
}
