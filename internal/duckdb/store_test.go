package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/bqh/internal/annotation"
	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/snps"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCalls() []snps.SampleCalls {
	s1 := &samples.Sample{Name: "T11.2.1", Treatment: "2", Cosm: "1", Timepoint: "T11"}
	s2 := &samples.Sample{Name: "T44.2.1", Treatment: "2", Cosm: "1", Timepoint: "T44"}
	s3 := &samples.Sample{Name: "T44.3.1", Treatment: "3", Cosm: "1", Timepoint: "T44"}
	return []snps.SampleCalls{
		{Sample: s1, Calls: []*snps.Call{
			{Chrom: "c1", Pos: 500, Qual: 80, Depth: 40, AltDepthSum: 10, FreqSum: 0.25, Product: "geneB"},
		}},
		{Sample: s2, Calls: []*snps.Call{
			{Chrom: "c1", Pos: 500, Qual: 90, Depth: 40, AltDepthSum: 30, FreqSum: 0.75, Product: "geneB"},
			{Chrom: "c1", Pos: 420, Qual: 30, Depth: 10, AltDepthSum: 5, FreqSum: 0.5, Product: snps.Intergenic},
		}},
		{Sample: s3, Calls: []*snps.Call{
			{Chrom: "c1", Pos: 120, Qual: 60, Depth: 20, AltDepthSum: 20, FreqSum: 1, Product: "geneA"},
		}},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestWriteCallsAndQueryByProduct(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCalls("run-1", "At", sampleCalls()))

	rows, err := s.CallsByProduct("At", "geneB")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CallRow{
		RunID: "run-1", Strain: "At", Sample: "T11.2.1", Treatment: "2", Cosm: "1", Timepoint: "T11",
		Chrom: "c1", Pos: 500, Qual: 80, Depth: 40, AltDepthSum: 10, FreqSum: 0.25, Product: "geneB",
	}, rows[0])
	assert.Equal(t, "T44.2.1", rows[1].Sample)

	rows, err = s.CallsByProduct("Ct", "geneB")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProductCounts(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCalls("run-1", "At", sampleCalls()))

	counts, err := s.ProductCounts("At")
	require.NoError(t, err)
	assert.Equal(t, []ProductCount{
		{Product: "geneB", Samples: 2, Calls: 2},
		{Product: "geneA", Samples: 1, Calls: 1},
	}, counts)
}

func TestClear(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCalls("run-1", "At", sampleCalls()))
	require.NoError(t, s.Clear())

	counts, err := s.ProductCounts("At")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calls.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteCalls("run-1", "At", sampleCalls()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.CallsByProduct("At", "geneA")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// --- Annotation index cache tests (gob) ---

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ref_stripped.gbk")
	require.NoError(t, os.WriteFile(path, []byte("LOCUS c1 10 bp\n//\n"), 0644))
	return path
}

func testIndex() *annotation.Index {
	b := annotation.NewBuilder()
	b.Add("c1", 100, 400, "geneA")
	b.Add("c1", 450, 600, "geneB")
	b.AddContig("plasmid")
	return b.Index()
}

func TestIndexCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	c := NewIndexCache(filepath.Join(dir, "cache"))

	_, ok := c.Get(src)
	assert.False(t, ok, "empty cache")

	require.NoError(t, c.Put(src, testIndex()))

	ix, ok := c.Get(src)
	require.True(t, ok)
	assert.Equal(t, "geneB", ix.Product("c1", 500))
	assert.Equal(t, []string{"c1", "plasmid"}, ix.Contigs())
}

func TestIndexCache_Stale(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	c := NewIndexCache(dir)
	require.NoError(t, c.Put(src, testIndex()))

	fp, err := StatFile(src)
	require.NoError(t, err)
	assert.True(t, c.Valid(fp))

	changed := fp
	changed.Size = 9999
	assert.False(t, c.Valid(changed))

	changed = fp
	changed.ModTime = fp.ModTime.Add(time.Hour)
	assert.False(t, c.Valid(changed))

	later := fp.ModTime.Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(src, later, later))
	_, ok := c.Get(src)
	assert.False(t, ok, "touched source invalidates cache")
}

func TestIndexCache_Clear(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)
	c := NewIndexCache(dir)
	require.NoError(t, c.Put(src, testIndex()))

	c.Clear(src)
	_, ok := c.Get(src)
	assert.False(t, ok)
}
