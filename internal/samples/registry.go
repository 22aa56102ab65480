// Package samples provides the experiment sample registry.
package samples

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Platform is the sequencing technology used for a sample.
type Platform string

// Supported sequencing platforms.
const (
	Illumina Platform = "illumina"
	PacBio   Platform = "pacbio"
)

// Sample describes one sequenced population.
type Sample struct {
	Name      string   `yaml:"name"`
	Strain    string   `yaml:"strain"`
	Platform  Platform `yaml:"platform"`
	Treatment string   `yaml:"treatment"`
	Timepoint string   `yaml:"timepoint"` // e.g. "T44"
	Cosm      string   `yaml:"cosm"`      // replicate microcosm
	Dir       string   `yaml:"dir"`
}

// MicroTreat returns the "treatment.cosm" label used to facet plots.
func (s *Sample) MicroTreat() string {
	return s.Treatment + "." + s.Cosm
}

// Path joins name onto the sample directory.
func (s *Sample) Path(name ...string) string {
	return filepath.Join(append([]string{s.Dir}, name...)...)
}

// Strain describes a bacterial strain and its reference genome.
type Strain struct {
	Name         string   `yaml:"name"`
	Abbreviation string   `yaml:"abbreviation"`
	Reference    string   `yaml:"reference"` // FASTA path
	Treatments   []string `yaml:"treatments"`
}

// sheet is the on-disk sample sheet layout.
type sheet struct {
	Strains []*Strain `yaml:"strains"`
	Samples []*Sample `yaml:"samples"`
}

// Registry indexes samples by strain. Sample order within a strain follows
// the sample sheet.
type Registry struct {
	strains map[string]*Strain
	samples map[string][]*Sample
}

// Load reads a YAML sample sheet.
// Relative sample directories and reference paths are resolved against the
// directory containing the sheet.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample sheet: %w", err)
	}

	var sh sheet
	if err := yaml.Unmarshal(data, &sh); err != nil {
		return nil, fmt.Errorf("parse sample sheet: %w", err)
	}

	base := filepath.Dir(path)
	for _, st := range sh.Strains {
		st.Reference = resolve(base, st.Reference)
	}
	for _, s := range sh.Samples {
		s.Dir = resolve(base, s.Dir)
	}

	return New(sh.Strains, sh.Samples)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// New builds a registry from strains and samples.
// Every sample must reference a declared strain.
func New(strains []*Strain, samples []*Sample) (*Registry, error) {
	r := &Registry{
		strains: make(map[string]*Strain, len(strains)),
		samples: make(map[string][]*Sample, len(strains)),
	}

	for _, st := range strains {
		if st.Name == "" {
			return nil, fmt.Errorf("sample sheet: strain without name")
		}
		if _, dup := r.strains[st.Name]; dup {
			return nil, fmt.Errorf("sample sheet: duplicate strain %q", st.Name)
		}
		r.strains[st.Name] = st
	}

	for _, s := range samples {
		st, ok := r.strains[s.Strain]
		if !ok {
			return nil, fmt.Errorf("sample sheet: sample %q has unknown strain %q", s.Name, s.Strain)
		}
		switch s.Platform {
		case Illumina, PacBio:
		default:
			return nil, fmt.Errorf("sample sheet: sample %q has unknown platform %q", s.Name, s.Platform)
		}
		r.samples[st.Name] = append(r.samples[st.Name], s)
	}

	return r, nil
}

// Strains returns the sorted strain names.
func (r *Registry) Strains() []string {
	names := make([]string, 0, len(r.strains))
	for name := range r.strains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Strain returns the strain with the given name, or nil.
func (r *Registry) Strain(name string) *Strain {
	return r.strains[name]
}

// Samples returns all samples of a strain.
func (r *Registry) Samples(strain string) []*Sample {
	return r.samples[strain]
}

// Filter returns the samples of a strain sequenced on platform.
// An empty timepoint matches every timepoint.
func (r *Registry) Filter(strain string, platform Platform, timepoint string) []*Sample {
	var out []*Sample
	for _, s := range r.samples[strain] {
		if s.Platform != platform {
			continue
		}
		if timepoint != "" && s.Timepoint != timepoint {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Treatments returns the treatment labels of a strain in declared order.
func (r *Registry) Treatments(strain string) []string {
	if st := r.strains[strain]; st != nil {
		return st.Treatments
	}
	return nil
}

// Reference returns the reference FASTA path of a strain.
func (r *Registry) Reference(strain string) string {
	if st := r.strains[strain]; st != nil {
		return st.Reference
	}
	return ""
}

// GenBank returns the stripped GenBank annotation path that sits next to the
// strain reference FASTA.
func (r *Registry) GenBank(strain string) string {
	ref := r.Reference(strain)
	if ref == "" {
		return ""
	}
	return strings.Replace(ref, ".fasta", "_stripped.gbk", 1)
}

// Abbreviation returns the short strain name used in output file names.
// Falls back to the strain name with spaces replaced.
func (r *Registry) Abbreviation(strain string) string {
	if st := r.strains[strain]; st != nil && st.Abbreviation != "" {
		return st.Abbreviation
	}
	return strings.ReplaceAll(strain, " ", "_")
}
