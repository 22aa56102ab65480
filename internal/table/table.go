// Package table flattens annotated calls into the per-strain frequency table.
package table

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/evolab/bqh/internal/snps"
)

// TimepointOrder is the x-axis order of sampling timepoints.
var TimepointOrder = []string{"T11", "T22", "T33", "T44"}

// Columns of the flattened table.
var Columns = []string{"micro_treat", "timepoint", "freq", "qual", "color", "product"}

// Row is one call of one sample.
type Row struct {
	MicroTreat string  // treatment.cosm
	Timepoint  string
	Freq       float64 // frequency sum
	Qual       float64
	Color      string // chrom.pos.treatment.cosm, one line per key
	Product    string
}

// Table holds the rows of one strain in sample order.
type Table struct {
	Rows []Row
}

// Build flattens annotated calls into rows. With dedupGenes, only the first
// row per (product, timepoint, micro_treat) is kept.
func Build(scs []snps.SampleCalls, dedupGenes bool) *Table {
	t := &Table{}
	seen := make(map[[3]string]bool)
	for _, sc := range scs {
		smp := sc.Sample
		microTreat := smp.MicroTreat()
		for _, c := range sc.Calls {
			row := Row{
				MicroTreat: microTreat,
				Timepoint:  smp.Timepoint,
				Freq:       c.FreqSum,
				Qual:       c.Qual,
				Color:      fmt.Sprintf("%s.%d.%s.%s", c.Chrom, c.Pos, smp.Treatment, smp.Cosm),
				Product:    c.Product,
			}
			if dedupGenes {
				key := [3]string{row.Product, row.Timepoint, row.MicroTreat}
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// MicroTreats returns the sorted distinct micro_treat values.
func (t *Table) MicroTreats() []string {
	set := make(map[string]bool)
	for _, r := range t.Rows {
		set[r.MicroTreat] = true
	}
	out := make([]string, 0, len(set))
	for mt := range set {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// Facet returns the rows of one micro_treat in table order.
func (t *Table) Facet(microTreat string) []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.MicroTreat == microTreat {
			out = append(out, r)
		}
	}
	return out
}

// Trajectory is the frequency of one call key over time.
type Trajectory struct {
	Color   string
	Product string
	Freqs   map[string]float64 // by timepoint
}

// Trajectories groups the rows of a facet by color key, in first-seen order.
// A repeated (color, timepoint) keeps the last frequency.
func (t *Table) Trajectories(microTreat string) []Trajectory {
	var out []Trajectory
	pos := make(map[string]int)
	for _, r := range t.Facet(microTreat) {
		i, ok := pos[r.Color]
		if !ok {
			i = len(out)
			pos[r.Color] = i
			out = append(out, Trajectory{Color: r.Color, Product: r.Product, Freqs: make(map[string]float64)})
		}
		out[i].Freqs[r.Timepoint] = r.Freq
	}
	return out
}

// DataFrame returns the table as a dataframe with Columns.
func (t *Table) DataFrame() dataframe.DataFrame {
	n := len(t.Rows)
	microTreat := make([]string, n)
	timepoint := make([]string, n)
	freq := make([]float64, n)
	qual := make([]float64, n)
	color := make([]string, n)
	product := make([]string, n)
	for i, r := range t.Rows {
		microTreat[i] = r.MicroTreat
		timepoint[i] = r.Timepoint
		freq[i] = r.Freq
		qual[i] = r.Qual
		color[i] = r.Color
		product[i] = r.Product
	}
	return dataframe.New(
		series.New(microTreat, series.String, "micro_treat"),
		series.New(timepoint, series.String, "timepoint"),
		series.New(freq, series.Float, "freq"),
		series.New(qual, series.Float, "qual"),
		series.New(color, series.String, "color"),
		series.New(product, series.String, "product"),
	)
}

// WriteCSV writes the table to path, creating parent directories.
func (t *Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	df := t.DataFrame()
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write table: %w", err)
	}
	return f.Close()
}
