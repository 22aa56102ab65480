package assembly

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/tsv"
)

// Files inside a PacBio sample directory.
const (
	AssemblyFile       = "assembly.fasta"
	NoAlignmentFile    = "no_alignment_regions.tsv"
	InReadDeletionFile = "in_read_deletions.tsv"
	InsertionFile      = "mutant_to_parent.noalignments.tsv"
)

// regionColumns identify a region in the deletion and insertion tables.
var regionColumns = []string{"chromosome", "position", "length"}

// Region is a (chromosome, position, length) row.
type Region struct {
	Chromosome string
	Position   int // 1-based
	Length     int
}

// ReadRegions reads the distinct regions of a deletion or insertion table.
func ReadRegions(path string) ([]Region, error) {
	t, err := tsv.Read(path, regionColumns...)
	if err != nil {
		return nil, err
	}
	t = t.Select(regionColumns...).Distinct()

	out := make([]Region, 0, t.Len())
	for i := range t.Rows {
		pos, err := strconv.Atoi(t.Get(i, "position"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid position: %w", path, i+2, err)
		}
		length, err := strconv.Atoi(t.Get(i, "length"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid length: %w", path, i+2, err)
		}
		out = append(out, Region{Chromosome: t.Get(i, "chromosome"), Position: pos, Length: length})
	}
	return out, nil
}

// SampleStat is a per-sample value of a PacBio summary.
type SampleStat struct {
	Sample    string
	Treatment string
	Value     int
}

// Summarizer computes PacBio summaries over registry samples.
type Summarizer struct {
	registry *samples.Registry
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer over r.
func NewSummarizer(r *samples.Registry) *Summarizer {
	return &Summarizer{registry: r, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped inputs.
func (s *Summarizer) SetLogger(l *zap.Logger) {
	s.logger = l
}

// DeletedBases sums the lengths of distinct deleted regions per PacBio sample
// of strain. Both deletion tables are optional.
func (s *Summarizer) DeletedBases(strain string) ([]SampleStat, error) {
	var out []SampleStat
	for _, smp := range s.registry.Filter(strain, samples.PacBio, "") {
		total := 0
		for _, name := range []string{NoAlignmentFile, InReadDeletionFile} {
			path := smp.Path(name)
			regions, err := ReadRegions(path)
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Debug("deletion table not found", zap.String("path", path))
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("deleted bases of %s: %w", smp.Name, err)
			}
			for _, r := range regions {
				total += r.Length
			}
		}
		out = append(out, SampleStat{Sample: smp.Name, Treatment: smp.Treatment, Value: total})
	}
	return out, nil
}

// Stats describes the assemblies of one strain.
type Stats struct {
	ReferenceLength int
	Lengths         []SampleStat // total assembly length per sample
	Contigs         []SampleStat // contig count per sample
}

// AssemblyStats reads the assembly of every PacBio sample of strain and the
// strain reference.
func (s *Summarizer) AssemblyStats(strain string) (*Stats, error) {
	ref, err := ReadContigs(s.registry.Reference(strain))
	if err != nil {
		return nil, fmt.Errorf("reference of %s: %w", strain, err)
	}

	st := &Stats{ReferenceLength: TotalLength(ref)}
	for _, smp := range s.registry.Filter(strain, samples.PacBio, "") {
		contigs, err := ReadContigs(smp.Path(AssemblyFile))
		if err != nil {
			return nil, fmt.Errorf("assembly of %s: %w", smp.Name, err)
		}
		st.Lengths = append(st.Lengths, SampleStat{Sample: smp.Name, Treatment: smp.Treatment, Value: TotalLength(contigs)})
		st.Contigs = append(st.Contigs, SampleStat{Sample: smp.Name, Treatment: smp.Treatment, Value: len(contigs)})
	}
	return st, nil
}

// StrainGC is the GC content of one strain reference.
type StrainGC struct {
	Strain    string
	GCContent float64 // percent
}

// GCContent computes the reference GC content of every strain, in strain
// order.
func (s *Summarizer) GCContent() ([]StrainGC, error) {
	var out []StrainGC
	for _, strain := range s.registry.Strains() {
		contigs, err := ReadContigs(s.registry.Reference(strain))
		if err != nil {
			return nil, fmt.Errorf("reference of %s: %w", strain, err)
		}
		out = append(out, StrainGC{Strain: strain, GCContent: GCContent(contigs)})
	}
	return out, nil
}
