package assembly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/evolab/bqh/internal/samples"
)

const strain = "Agrobacterium tumefaciens"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testRegistry(t *testing.T) *samples.Registry {
	t.Helper()
	root := t.TempDir()

	ref := filepath.Join(root, "refs", "at.fasta")
	writeFile(t, ref, ">c1 chromosome\nACGTACGTGG\n>c2\nCCAA\n")

	pb1 := filepath.Join(root, "pb1")
	writeFile(t, filepath.Join(pb1, AssemblyFile), ">ctg1\nAAAACCCC\nGGGGTTTT\n>ctg2\nACGT\n")
	writeFile(t, filepath.Join(pb1, NoAlignmentFile),
		"chromosome\tposition\tlength\tnote\nctg1\t3\t4\ta\nctg1\t3\t4\tb\nctg2\t1\t2\tc\n")
	writeFile(t, filepath.Join(pb1, InReadDeletionFile), "chromosome\tposition\tlength\nctg1\t10\t5\n")
	writeFile(t, filepath.Join(pb1, InsertionFile),
		"chromosome\tposition\tlength\nctg1\t5\t4\nctg1\t5\t4\nctg2\t1\t4\nctg1\t2\t3\n")

	pb2 := filepath.Join(root, "pb2")
	writeFile(t, filepath.Join(pb2, AssemblyFile), ">ctg1\nACGTACGTAC\n")
	writeFile(t, filepath.Join(pb2, InsertionFile), "chromosome\tposition\tlength\nctg1\t9\t2\n")

	r, err := samples.New(
		[]*samples.Strain{{Name: strain, Reference: ref, Treatments: []string{"1", "2"}}},
		[]*samples.Sample{
			{Name: "pb1", Strain: strain, Platform: samples.PacBio, Treatment: "1", Timepoint: "T44", Cosm: "1", Dir: pb1},
			{Name: "il1", Strain: strain, Platform: samples.Illumina, Treatment: "1", Timepoint: "T44", Cosm: "1", Dir: filepath.Join(root, "il1")},
			{Name: "pb2", Strain: strain, Platform: samples.PacBio, Treatment: "2", Timepoint: "T44", Cosm: "1", Dir: pb2},
		},
	)
	require.NoError(t, err)
	return r
}

func TestReadContigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.fasta")
	writeFile(t, path, ">a first contig\nACGT\nAC\n>b\nGG\n")

	contigs, err := ReadContigs(path)
	require.NoError(t, err)
	require.Len(t, contigs, 2)
	assert.Equal(t, "a", contigs[0].ID)
	assert.Equal(t, "ACGTAC", string(contigs[0].Seq))
	assert.Equal(t, 8, TotalLength(contigs))
	assert.Equal(t, 2, ContigMap(contigs)["b"].Len())

	_, err = ReadContigs(filepath.Join(t.TempDir(), "missing.fasta"))
	assert.Error(t, err)
}

func TestGCContent(t *testing.T) {
	tests := []struct {
		name string
		seqs []string
		want float64
	}{
		{"empty", nil, 0},
		{"all gc", []string{"GGCC"}, 100},
		{"half", []string{"ACGT"}, 50},
		{"concatenated", []string{"AAAA", "GGGG"}, 50},
		{"lowercase ignored", []string{"gcAT"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var contigs []Contig
			for _, s := range tt.seqs {
				contigs = append(contigs, Contig{Seq: []byte(s)})
			}
			assert.InDelta(t, tt.want, GCContent(contigs), 1e-9)
		})
	}
}

func TestDeletedBases(t *testing.T) {
	s := NewSummarizer(testRegistry(t))

	stats, err := s.DeletedBases(strain)
	require.NoError(t, err)
	assert.Equal(t, []SampleStat{
		{Sample: "pb1", Treatment: "1", Value: 11},
		{Sample: "pb2", Treatment: "2", Value: 0},
	}, stats)
}

func TestAssemblyStats(t *testing.T) {
	s := NewSummarizer(testRegistry(t))

	st, err := s.AssemblyStats(strain)
	require.NoError(t, err)
	assert.Equal(t, 14, st.ReferenceLength)
	assert.Equal(t, []SampleStat{
		{Sample: "pb1", Treatment: "1", Value: 20},
		{Sample: "pb2", Treatment: "2", Value: 10},
	}, st.Lengths)
	assert.Equal(t, []SampleStat{
		{Sample: "pb1", Treatment: "1", Value: 2},
		{Sample: "pb2", Treatment: "2", Value: 1},
	}, st.Contigs)
}

func TestSummarizer_GCContent(t *testing.T) {
	s := NewSummarizer(testRegistry(t))

	gc, err := s.GCContent()
	require.NoError(t, err)
	require.Len(t, gc, 1)
	assert.Equal(t, strain, gc[0].Strain)
	assert.InDelta(t, 100*8.0/14.0, gc[0].GCContent, 1e-9)

	path := filepath.Join(t.TempDir(), "tables", "gc_content", "gc_content.csv")
	require.NoError(t, WriteGCContent(path, gc))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	df := dataframe.ReadCSV(f, dataframe.DetectTypes(false))
	require.NoError(t, df.Err)
	assert.Equal(t, []string{"strain", "gc content"}, df.Names())
	assert.Equal(t, []string{strain}, df.Col("strain").Records())
}

func TestParseAndFilterInsertions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSummarizer(testRegistry(t))
	s.SetLogger(zap.New(core))

	ins, err := s.ParseInsertions()
	require.NoError(t, err)
	assert.Equal(t, []Insertion{
		{Sample: "pb1", Chromosome: "ctg1", Position: 5, Length: 4, Sequence: "CCCC", ContigLength: 16},
		{Sample: "pb1", Chromosome: "ctg2", Position: 1, Length: 4, Sequence: "ACGT", ContigLength: 4},
		{Sample: "pb1", Chromosome: "ctg1", Position: 2, Length: 3, Sequence: "AAA", ContigLength: 16},
		{Sample: "pb2", Chromosome: "ctg1", Position: 9, Length: 2, Sequence: "AC", ContigLength: 10},
	}, ins)

	kept, dropped := s.FilterInsertions(ins, 3)
	assert.Equal(t, []Insertion{ins[0], ins[1]}, kept, "whole-contig insertion kept")
	assert.Equal(t, []Insertion{ins[2], ins[3]}, dropped, "near start and near end dropped")
	assert.Equal(t, 2, logs.FilterMessage("dropping insertion").Len())
	assert.Equal(t, 2, logs.FilterMessage("keeping insertion").Len())

	path := filepath.Join(t.TempDir(), "insertions.csv")
	require.NoError(t, WriteInsertions(path, kept))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sample_name,chromosome,position,length,sequence,contig_length\n"+
		"pb1,ctg1,5,4,CCCC,16\n"+
		"pb1,ctg2,1,4,ACGT,4\n", string(data))
}

func TestSubsequence(t *testing.T) {
	seq := []byte("ACGTAC")
	assert.Equal(t, "CGT", subsequence(seq, 1, 4))
	assert.Equal(t, "AC", subsequence(seq, 4, 10))
	assert.Equal(t, "", subsequence(seq, 8, 10))
}

func TestParseInsertions_UnknownContig(t *testing.T) {
	r := testRegistry(t)
	pb2 := r.Filter(strain, samples.PacBio, "")[1]
	writeFile(t, pb2.Path(InsertionFile), "chromosome\tposition\tlength\nnope\t1\t1\n")

	_, err := NewSummarizer(r).ParseInsertions()
	assert.ErrorContains(t, err, "insertions of pb2")
}

func TestHeaderOnlyRegionTables(t *testing.T) {
	const regionHeader = "chromosome\tposition\tlength\n"

	tests := []struct {
		name string
		run  func(t *testing.T, r *samples.Registry)
	}{
		{"no alignment regions", func(t *testing.T, r *samples.Registry) {
			pb2 := r.Filter(strain, samples.PacBio, "")[1]
			writeFile(t, pb2.Path(NoAlignmentFile), regionHeader)

			stats, err := NewSummarizer(r).DeletedBases(strain)
			require.NoError(t, err)
			assert.Equal(t, []SampleStat{
				{Sample: "pb1", Treatment: "1", Value: 11},
				{Sample: "pb2", Treatment: "2", Value: 0},
			}, stats)
		}},
		{"in-read deletions", func(t *testing.T, r *samples.Registry) {
			pb1 := r.Filter(strain, samples.PacBio, "")[0]
			writeFile(t, pb1.Path(InReadDeletionFile), regionHeader)

			stats, err := NewSummarizer(r).DeletedBases(strain)
			require.NoError(t, err)
			assert.Equal(t, 6, stats[0].Value)
		}},
		{"deletion table missing a column", func(t *testing.T, r *samples.Registry) {
			pb2 := r.Filter(strain, samples.PacBio, "")[1]
			writeFile(t, pb2.Path(NoAlignmentFile), "chromosome\tposition\n")

			_, err := NewSummarizer(r).DeletedBases(strain)
			assert.ErrorContains(t, err, "missing 'length' column")
		}},
		{"insertions", func(t *testing.T, r *samples.Registry) {
			for _, smp := range r.Filter(strain, samples.PacBio, "") {
				writeFile(t, smp.Path(InsertionFile), regionHeader)
			}

			s := NewSummarizer(r)
			ins, err := s.ParseInsertions()
			require.NoError(t, err)
			assert.Empty(t, ins)

			kept, dropped := s.FilterInsertions(ins, 3)
			assert.Empty(t, kept)
			assert.Empty(t, dropped)

			path := filepath.Join(t.TempDir(), "insertions.csv")
			require.NoError(t, WriteInsertions(path, kept))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "sample_name,chromosome,position,length,sequence,contig_length\n", string(data))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, testRegistry(t))
		})
	}
}
