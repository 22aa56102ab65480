package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evolab/bqh/internal/annotation"
)

// IndexCache manages gob-serialized annotation indexes on disk, one pair of
// files per GenBank source:
//
//	{dir}/{name}.gob       (serialized intervals)
//	{dir}/{name}.gob.meta  (source file fingerprint)
//
// where name is a UUID derived from the absolute source path.
type IndexCache struct {
	dir string
}

// NewIndexCache creates an index cache in dir.
func NewIndexCache(dir string) *IndexCache {
	return &IndexCache{dir: dir}
}

func (c *IndexCache) name(source string) string {
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+source)).String()
}

func (c *IndexCache) gobPath(source string) string {
	return filepath.Join(c.dir, c.name(source)+".gob")
}

func (c *IndexCache) metaPath(source string) string {
	return c.gobPath(source) + ".meta"
}

// Valid checks whether the cached index matches the current source file.
func (c *IndexCache) Valid(fp FileFingerprint) bool {
	meta, err := c.readMeta(fp.Path)
	if err != nil || !fp.matches(meta) {
		return false
	}
	_, err = os.Stat(c.gobPath(fp.Path))
	return err == nil
}

// Get returns the cached index for source, or false when absent or stale.
func (c *IndexCache) Get(source string) (*annotation.Index, bool) {
	fp, err := StatFile(source)
	if err != nil || !c.Valid(fp) {
		return nil, false
	}
	ix, err := c.Load(source)
	if err != nil {
		return nil, false
	}
	return ix, true
}

// Load reads a serialized index from disk without validating it.
func (c *IndexCache) Load(source string) (*annotation.Index, error) {
	f, err := os.Open(c.gobPath(source))
	if err != nil {
		return nil, fmt.Errorf("open index cache: %w", err)
	}
	defer f.Close()

	var data map[string][]annotation.Interval
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode index cache: %w", err)
	}
	return annotation.FromIntervals(data), nil
}

// Put serializes ix and records the fingerprint of source.
func (c *IndexCache) Put(source string, ix *annotation.Index) error {
	fp, err := StatFile(source)
	if err != nil {
		return fmt.Errorf("stat index source: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	path := c.gobPath(source)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(ix.All()); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode index cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index cache: %w", err)
	}

	return c.writeMeta(fp)
}

// Clear removes the cached files for source.
func (c *IndexCache) Clear(source string) {
	os.Remove(c.gobPath(source))
	os.Remove(c.metaPath(source))
}

func (c *IndexCache) writeMeta(fp FileFingerprint) error {
	lines := append(fp.metaLines(), "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(c.metaPath(fp.Path), []byte(strings.Join(lines, "\n")), 0644)
}

func (c *IndexCache) readMeta(source string) (map[string]string, error) {
	data, err := os.ReadFile(c.metaPath(source))
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
