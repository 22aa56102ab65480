// Package effects summarizes snippy variant tables of Illumina samples.
package effects

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/tsv"
)

// SNPsTab is the snippy variant table inside a sample directory.
var SNPsTab = []string{"snippy", "snps.tab"}

// Column names used from snippy tables.
const (
	EffectColumn  = "EFFECT"
	ProductColumn = "PRODUCT"

	// PacBioProductColumn is the product column of PacBio annotation tables.
	PacBioProductColumn = "product"
)

// ReadSNPsTab loads a snippy table without duplicate rows.
func ReadSNPsTab(path string, required ...string) (*tsv.Table, error) {
	t, err := tsv.Read(path, required...)
	if err != nil {
		return nil, err
	}
	return t.Distinct(), nil
}

// effectNames returns the first whitespace token of each non-empty EFFECT.
func effectNames(t *tsv.Table) []string {
	var out []string
	for _, e := range t.Column(EffectColumn) {
		if fields := strings.Fields(e); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// EffectTable holds effect counts summed per treatment.
type EffectTable struct {
	Effects    []string                  // sorted
	Treatments []string                  // strain treatment order
	Counts     map[string]map[string]int // [effect][treatment]
}

// Count returns the summed count of effect in treatment.
func (e *EffectTable) Count(effect, treatment string) int {
	return e.Counts[effect][treatment]
}

// Summarizer reads snippy tables of registry samples.
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

// EffectCounts counts variant effects of the Illumina samples of strain at
// timepoint. For each sample and each effect name seen in it, the rows whose
// EFFECT mentions that name (case-insensitively) are added to the sample's
// treatment.
func (s *Summarizer) EffectCounts(strain, timepoint string) (*EffectTable, error) {
	out := &EffectTable{
		Treatments: s.registry.Treatments(strain),
		Counts:     make(map[string]map[string]int),
	}

	for _, smp := range s.registry.Filter(strain, samples.Illumina, timepoint) {
		t, err := ReadSNPsTab(smp.Path(SNPsTab...), EffectColumn)
		if err != nil {
			return nil, fmt.Errorf("effects of %s: %w", smp.Name, err)
		}

		column := t.Column(EffectColumn)
		for _, name := range uniq(effectNames(t)) {
			re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(name))
			n := 0
			for _, e := range column {
				if e != "" && re.MatchString(e) {
					n++
				}
			}
			if out.Counts[name] == nil {
				out.Counts[name] = make(map[string]int)
			}
			out.Counts[name][smp.Treatment] += n
		}
	}

	for name := range out.Counts {
		out.Effects = append(out.Effects, name)
	}
	sort.Strings(out.Effects)
	return out, nil
}

// SNPCount is the number of distinct snippy rows of one sample.
type SNPCount struct {
	Sample    string
	Treatment string
	Count     int
}

// SNPCounts counts distinct variants per Illumina sample of strain at
// timepoint, in registry order.
func (s *Summarizer) SNPCounts(strain, timepoint string) ([]SNPCount, error) {
	var out []SNPCount
	for _, smp := range s.registry.Filter(strain, samples.Illumina, timepoint) {
		t, err := ReadSNPsTab(smp.Path(SNPsTab...))
		if err != nil {
			return nil, fmt.Errorf("snp count of %s: %w", smp.Name, err)
		}
		out = append(out, SNPCount{Sample: smp.Name, Treatment: smp.Treatment, Count: t.Len()})
	}
	return out, nil
}

// ProductHits is a product and the number of samples carrying it.
type ProductHits struct {
	Product string
	Samples int
}

// UniqueProducts returns the products found in samples of treatment b and in
// no sample of treatment a, with the number of b samples carrying each,
// most frequent first. file is relative to each sample directory. Missing
// files are logged and skipped.
func (s *Summarizer) UniqueProducts(strain, a, b string, platform samples.Platform, file string) ([]ProductHits, error) {
	column := ProductColumn
	if platform == samples.PacBio {
		column = PacBioProductColumn
	}

	inA := make(map[string]int)
	inB := make(map[string]int)
	for _, smp := range s.registry.Filter(strain, platform, "") {
		var counts map[string]int
		switch smp.Treatment {
		case a:
			counts = inA
		case b:
			counts = inB
		default:
			continue
		}

		path := smp.Path(file)
		t, err := tsv.Read(path, column)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("product table not found", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("products of %s: %w", smp.Name, err)
		}
		for _, p := range uniq(t.Column(column)) {
			if p == "" {
				continue
			}
			counts[p]++
		}
	}

	var out []ProductHits
	for p, n := range inB {
		if _, ok := inA[p]; !ok {
			out = append(out, ProductHits{Product: p, Samples: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Samples != out[j].Samples {
			return out[i].Samples > out[j].Samples
		}
		return out[i].Product < out[j].Product
	})
	return out, nil
}

func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
