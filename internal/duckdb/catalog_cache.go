package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/crs4/vispa/internal/catalog"
)

// SourceFingerprint identifies the BED file a cache was built from and how
// it was parsed.
type SourceFingerprint struct {
	Path          string
	Size          int64
	ModTime       time.Time
	SkipMalformed bool
}

// FingerprintBED stats the BED file at path. Relative paths are resolved so
// the same file reached from another directory still matches.
func FingerprintBED(path string, skipMalformed bool) (SourceFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceFingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return SourceFingerprint{}, err
	}
	return SourceFingerprint{
		Path:          abs,
		Size:          info.Size(),
		ModTime:       info.ModTime(),
		SkipMalformed: skipMalformed,
	}, nil
}

func (fp SourceFingerprint) meta() map[string]string {
	return map[string]string{
		"bed_path":       fp.Path,
		"bed_size":       strconv.FormatInt(fp.Size, 10),
		"bed_modtime":    fp.ModTime.UTC().Format(time.RFC3339Nano),
		"skip_malformed": strconv.FormatBool(fp.SkipMalformed),
	}
}

// CatalogCache manages a gob-serialized snapshot of validated catalog records:
//
//	{dir}/catalog.gob       (serialized records)
//	{dir}/catalog.gob.meta  (BED source fingerprint)
type CatalogCache struct {
	dir string
}

// NewCatalogCache creates a catalog cache for the given directory.
func NewCatalogCache(dir string) *CatalogCache {
	return &CatalogCache{dir: dir}
}

func (cc *CatalogCache) gobPath() string {
	return filepath.Join(cc.dir, "catalog.gob")
}

func (cc *CatalogCache) metaPath() string {
	return filepath.Join(cc.dir, "catalog.gob.meta")
}

// Valid checks whether the cached catalog matches the current BED file.
func (cc *CatalogCache) Valid(bed SourceFingerprint) bool {
	meta, err := cc.readMeta()
	if err != nil {
		return false
	}
	for k, v := range bed.meta() {
		if meta[k] != v {
			return false
		}
	}

	// Verify gob file exists
	if _, err := os.Stat(cc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached records into idx. The caller finalizes the index.
func (cc *CatalogCache) Load(idx *catalog.Index) error {
	f, err := os.Open(cc.gobPath())
	if err != nil {
		return fmt.Errorf("open catalog cache: %w", err)
	}
	defer f.Close()

	var recs []catalog.Record
	if err := gob.NewDecoder(f).Decode(&recs); err != nil {
		return fmt.Errorf("decode catalog cache: %w", err)
	}

	for _, r := range recs {
		if err := idx.Add(r); err != nil {
			return fmt.Errorf("add cached record: %w", err)
		}
	}
	return nil
}

// Write serializes the records held by idx to disk.
func (cc *CatalogCache) Write(idx *catalog.Index, bed SourceFingerprint) error {
	if err := os.MkdirAll(cc.dir, 0755); err != nil {
		return fmt.Errorf("create catalog cache directory: %w", err)
	}

	f, err := os.Create(cc.gobPath())
	if err != nil {
		return fmt.Errorf("create catalog cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(idx.Records()); err != nil {
		f.Close()
		os.Remove(cc.gobPath())
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close catalog cache: %w", err)
	}

	return cc.writeMeta(bed)
}

// Clear removes the cached catalog files.
func (cc *CatalogCache) Clear() {
	os.Remove(cc.gobPath())
	os.Remove(cc.metaPath())
}

func (cc *CatalogCache) writeMeta(bed SourceFingerprint) error {
	meta := bed.meta()
	meta["created_at"] = time.Now().UTC().Format(time.RFC3339)

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, meta[k])
	}
	return os.WriteFile(cc.metaPath(), []byte(b.String()), 0644)
}

func (cc *CatalogCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(cc.metaPath())
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
