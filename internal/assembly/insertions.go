package assembly

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/samples"
)

// Insertion is a region of a mutant assembly absent from its parent.
type Insertion struct {
	Sample       string
	Chromosome   string
	Position     int // 1-based
	Length       int
	Sequence     string
	ContigLength int
}

// ParseInsertions reads the insertion table of every PacBio sample and
// attaches the inserted sequence from the sample assembly.
func (s *Summarizer) ParseInsertions() ([]Insertion, error) {
	var out []Insertion
	for _, strain := range s.registry.Strains() {
		for _, smp := range s.registry.Filter(strain, samples.PacBio, "") {
			ins, err := sampleInsertions(smp)
			if err != nil {
				return nil, fmt.Errorf("insertions of %s: %w", smp.Name, err)
			}
			out = append(out, ins...)
		}
	}
	return out, nil
}

func sampleInsertions(smp *samples.Sample) ([]Insertion, error) {
	regions, err := ReadRegions(smp.Path(InsertionFile))
	if err != nil {
		return nil, err
	}
	contigs, err := ReadContigs(smp.Path(AssemblyFile))
	if err != nil {
		return nil, err
	}
	byID := ContigMap(contigs)

	out := make([]Insertion, 0, len(regions))
	for _, r := range regions {
		c, ok := byID[r.Chromosome]
		if !ok {
			return nil, fmt.Errorf("contig %q not in %s", r.Chromosome, AssemblyFile)
		}
		out = append(out, Insertion{
			Sample:       smp.Name,
			Chromosome:   r.Chromosome,
			Position:     r.Position,
			Length:       r.Length,
			Sequence:     subsequence(c.Seq, r.Position-1, r.Position-1+r.Length),
			ContigLength: c.Len(),
		})
	}
	return out, nil
}

// subsequence clamps [start, end) to seq.
func subsequence(seq []byte, start, end int) string {
	start = max(0, min(start, len(seq)))
	end = max(start, min(end, len(seq)))
	return string(seq[start:end])
}

// FilterInsertions separates insertions near contig ends, which are likely
// assembly artifacts. Insertions spanning a whole contig are kept.
func (s *Summarizer) FilterInsertions(ins []Insertion, minDistance int) (kept, dropped []Insertion) {
	for _, in := range ins {
		switch {
		case in.Length == in.ContigLength:
			kept = append(kept, in)
		case in.Position < minDistance, in.ContigLength-in.Position < minDistance:
			dropped = append(dropped, in)
		default:
			kept = append(kept, in)
		}
	}

	for _, in := range dropped {
		s.logger.Info("dropping insertion", insertionFields(in)...)
	}
	for _, in := range kept {
		s.logger.Info("keeping insertion", insertionFields(in)...)
	}
	return kept, dropped
}

func insertionFields(in Insertion) []zap.Field {
	return []zap.Field{
		zap.String("sample", in.Sample),
		zap.String("chromosome", in.Chromosome),
		zap.Int("position", in.Position),
		zap.Int("length", in.Length),
		zap.Int("contig_length", in.ContigLength),
	}
}

// WriteInsertions exports insertions as CSV.
func WriteInsertions(path string, ins []Insertion) error {
	n := len(ins)
	sample := make([]string, n)
	chrom := make([]string, n)
	pos := make([]int, n)
	length := make([]int, n)
	sequence := make([]string, n)
	contigLength := make([]int, n)
	for i, in := range ins {
		sample[i] = in.Sample
		chrom[i] = in.Chromosome
		pos[i] = in.Position
		length[i] = in.Length
		sequence[i] = in.Sequence
		contigLength[i] = in.ContigLength
	}

	return writeCSV(path, dataframe.New(
		series.New(sample, series.String, "sample_name"),
		series.New(chrom, series.String, "chromosome"),
		series.New(pos, series.Int, "position"),
		series.New(length, series.Int, "length"),
		series.New(sequence, series.String, "sequence"),
		series.New(contigLength, series.Int, "contig_length"),
	))
}

// WriteGCContent exports per-strain GC content as CSV.
func WriteGCContent(path string, gc []StrainGC) error {
	strains := make([]string, len(gc))
	values := make([]float64, len(gc))
	for i, g := range gc {
		strains[i] = g.Strain
		values[i] = g.GCContent
	}
	return writeCSV(path, dataframe.New(
		series.New(strains, series.String, "strain"),
		series.New(values, series.Float, "gc content"),
	))
}

func writeCSV(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return f.Close()
}
