package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// meta is the JSON sidecar listing a store's on-disk segments, oldest
// first (§3's "a JSON meta listing segment UUIDs").
type meta struct {
	Segments []string `json:"segments"`
}

func metaPath(dir string) string { return filepath.Join(dir, "meta.json") }

func readMeta(dir string) (meta, error) {
	data, err := os.ReadFile(metaPath(dir))
	if os.IsNotExist(err) {
		return meta{}, nil
	}
	if err != nil {
		return meta{}, fmt.Errorf("reading meta.json: %w", err)
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return meta{}, fmt.Errorf("parsing meta.json: %w", err)
	}
	return m, nil
}

// writeMeta rewrites meta.json atomically: a commit becomes durable only
// once both the new segment's files and the updated meta.json are in
// place, per §5's "committing snapshots it into a new on-disk segment
// atomically by writing files and then rewriting the meta.json".
func writeMeta(dir string, m meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding meta.json: %w", err)
	}
	return writeFileAtomic(metaPath(dir), data)
}
