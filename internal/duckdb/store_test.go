package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crs4/vispa/internal/annotate"
	"github.com/crs4/vispa/internal/catalog"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []*annotate.Record {
	return []*annotate.Record{
		{Chrom: "chr1", Pos: 7, Name: "F15", Start: 4, End: 6, Strand: catalog.Reverse,
			TSSDistance: 1, RelPos: annotate.Upstream},
		{Chrom: "chr1", Pos: 7, Name: "F12", Start: 8, End: 10, Strand: catalog.Forward,
			TSSDistance: 1, RelPos: annotate.Upstream},
		{Chrom: "chr1", Pos: 3, Name: "F11", Start: 1, End: 5, Strand: catalog.Forward,
			TSSDistance: 2, RelPos: annotate.InGene, Integration: 50},
	}
}

// --- Result store tests (DuckDB) ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWriteAndLookupSite(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run-a", sampleRecords()))

	got, err := s.LookupSite("chr1", 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-a", got[0].RunID)
	assert.Equal(t, *sampleRecords()[0], *got[0].Record)
	assert.Equal(t, *sampleRecords()[1], *got[1].Record)

	got, err = s.LookupSite("chr1", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, annotate.InGene, got[0].Record.RelPos)
	assert.InDelta(t, 50.0, got[0].Record.Integration, 1e-9)

	got, err = s.LookupSite("chr2", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteResults_Empty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run-a", nil))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSearchByFeature(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run-a", sampleRecords()))
	require.NoError(t, s.WriteResults("run-b", sampleRecords()[1:2]))

	got, err := s.SearchByFeature("F12")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-a", got[0].RunID)
	assert.Equal(t, "run-b", got[1].RunID)
	assert.Equal(t, catalog.Forward, got[1].Record.Strand)

	got, err = s.SearchByFeature("NOTEXIST")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRuns(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run-b", sampleRecords()[:1]))
	require.NoError(t, s.WriteResults("run-a", sampleRecords()))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []Run{{ID: "run-a", Records: 3}, {ID: "run-b", Records: 1}}, runs)
}

func TestClearResults(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteResults("run-a", sampleRecords()))

	require.NoError(t, s.ClearResults())

	got, err := s.LookupSite("chr1", 7)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Catalog cache tests (gob) ---

func fixtureIndex(t *testing.T) *catalog.Index {
	t.Helper()
	idx := catalog.New()
	for _, r := range []catalog.Record{
		{Chrom: "chr1", Start: 1, End: 6, Name: "F11", Strand: catalog.Forward},
		{Chrom: "chr1", Start: 8, End: 11, Name: "F12", Strand: catalog.Forward},
		{Chrom: "chr1", Start: 8, End: 11, Name: "F13", Strand: catalog.Reverse},
		{Chrom: "chr2", Start: 5, End: 11, Name: "F21", Strand: catalog.Reverse},
	} {
		require.NoError(t, idx.Add(r))
	}
	idx.Finalize()
	return idx
}

func TestCatalogCacheWriteAndLoad(t *testing.T) {
	cc := NewCatalogCache(filepath.Join(t.TempDir(), "cache"))
	idx := fixtureIndex(t)

	fp := SourceFingerprint{Path: "genes.bed", Size: 1000, ModTime: time.Now()}
	require.NoError(t, cc.Write(idx, fp))

	loaded := catalog.New()
	require.NoError(t, cc.Load(loaded))
	loaded.Finalize()

	assert.Equal(t, idx.Records(), loaded.Records())
	assert.Equal(t, idx.Layers("chr1"), loaded.Layers("chr1"))
}

func TestCatalogCacheValidation(t *testing.T) {
	cc := NewCatalogCache(t.TempDir())

	now := time.Now()
	fp := SourceFingerprint{Path: "genes.bed", Size: 1000, ModTime: now}

	// No cache yet → invalid
	assert.False(t, cc.Valid(fp))

	require.NoError(t, cc.Write(fixtureIndex(t), fp))

	// Same fingerprint → valid
	assert.True(t, cc.Valid(fp))

	// Different size → stale
	changed := fp
	changed.Size = 9999
	assert.False(t, cc.Valid(changed))

	// Different modtime → stale
	changed = fp
	changed.ModTime = now.Add(time.Hour)
	assert.False(t, cc.Valid(changed))

	// Different source file → stale
	changed = fp
	changed.Path = "other.bed"
	assert.False(t, cc.Valid(changed))

	// Built while skipping malformed records → stale for a strict load
	changed = fp
	changed.SkipMalformed = true
	assert.False(t, cc.Valid(changed))
}

func TestCatalogCacheClear(t *testing.T) {
	cc := NewCatalogCache(t.TempDir())
	fp := SourceFingerprint{Size: 100, ModTime: time.Now()}

	require.NoError(t, cc.Write(fixtureIndex(t), fp))
	assert.True(t, cc.Valid(fp))

	cc.Clear()
	assert.False(t, cc.Valid(fp))
}

func TestFingerprintBED(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genes.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\t1\t2\tA\t0\t+\n"), 0644))

	fp, err := FingerprintBED(path, true)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(fp.Path))
	assert.Equal(t, int64(15), fp.Size)
	assert.True(t, fp.SkipMalformed)

	t.Chdir(dir)
	rel, err := FingerprintBED("genes.bed", true)
	require.NoError(t, err)
	assert.Equal(t, fp, rel)

	_, err = FingerprintBED(filepath.Join(dir, "missing.bed"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// countWriter counts records passed through it.
type countWriter struct {
	n       int
	flushed bool
}

func (w *countWriter) WriteHeader() error { return nil }

func (w *countWriter) Write(*annotate.Record) error {
	w.n++
	return nil
}

func (w *countWriter) Flush() error {
	w.flushed = true
	return nil
}

func TestResultWriter(t *testing.T) {
	s := openInMemory(t)
	next := &countWriter{}
	w := NewResultWriter(next, s, "run-a")
	w.batchSize = 2

	require.NoError(t, w.WriteHeader())
	for _, r := range sampleRecords() {
		require.NoError(t, w.Write(r))
	}

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []Run{{ID: "run-a", Records: 2}}, runs, "first batch stored before flush")

	require.NoError(t, w.Flush())
	assert.Equal(t, 3, next.n)
	assert.True(t, next.flushed)

	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []Run{{ID: "run-a", Records: 3}}, runs)
}
