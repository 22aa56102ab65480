// Package plot renders analysis tables as interactive HTML pages and PNG
// figures.
package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/evolab/bqh/internal/table"
)

// Output file suffixes appended to a strain prefix.
const (
	PhredSuffix        = "_phred_score.html"
	FrequencySuffix    = "_frequencies.html"
	TrajectoriesSuffix = "_trajectories.html"

	// UniqueGenesPrefix marks plots of the gene-deduplicated table.
	UniqueGenesPrefix = "unique_genes_"
)

// DefaultBins is the number of histogram bins per facet.
const DefaultBins = 20

// missing is the echarts placeholder for an absent data point.
const missing = "-"

// PhredScores writes the quality histogram of t, one chart per micro_treat.
func PhredScores(out string, t *table.Table) error {
	return histogramPage(out+PhredSuffix, "SNP phred scores", "qual", t,
		func(r table.Row) float64 { return r.Qual })
}

// Frequencies writes the frequency histogram of t, one chart per micro_treat.
func Frequencies(out string, t *table.Table) error {
	return histogramPage(out+FrequencySuffix, "SNP frequencies", "freq", t,
		func(r table.Row) float64 { return r.Freq })
}

// Trajectories writes one line per call key over timepoints, one chart per
// micro_treat. Series names carry the product.
func Trajectories(out string, t *table.Table) error {
	var cs []components.Charter
	for _, mt := range t.MicroTreats() {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "micro_treat=" + mt}),
			charts.WithXAxisOpts(opts.XAxis{Name: "timepoint", Type: "category"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "freq"}),
		)
		line.SetXAxis(table.TimepointOrder)
		for _, tr := range t.Trajectories(mt) {
			data := make([]opts.LineData, len(table.TimepointOrder))
			for i, tp := range table.TimepointOrder {
				if f, ok := tr.Freqs[tp]; ok {
					data[i] = opts.LineData{Value: f}
				} else {
					data[i] = opts.LineData{Value: missing}
				}
			}
			line.AddSeries(tr.Color+" "+tr.Product, data)
		}
		cs = append(cs, line)
	}
	return renderPage(out+TrajectoriesSuffix, "SNP trajectories", cs)
}

func histogramPage(path, title, field string, t *table.Table, value func(table.Row) float64) error {
	var cs []components.Charter
	for _, mt := range t.MicroTreats() {
		facet := t.Facet(mt)
		values := make([]float64, len(facet))
		for i, r := range facet {
			values[i] = value(r)
		}
		labels, counts := Histogram(values, DefaultBins)

		data := make([]opts.BarData, len(counts))
		for i, c := range counts {
			if c == 0 {
				data[i] = opts.BarData{Value: missing}
			} else {
				data[i] = opts.BarData{Value: c}
			}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "micro_treat=" + mt}),
			charts.WithXAxisOpts(opts.XAxis{Name: field}),
			charts.WithYAxisOpts(opts.YAxis{Name: "count", Type: "log"}),
		)
		bar.SetXAxis(labels).AddSeries("count", data)
		cs = append(cs, bar)
	}
	return renderPage(path, title, cs)
}

func renderPage(path, title string, cs []components.Charter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(cs...)
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// Histogram bins values into n equal-width bins spanning their range.
// Labels are the bin lower edges.
func Histogram(values []float64, n int) ([]string, []int) {
	if len(values) == 0 || n < 1 {
		return nil, nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []string{formatEdge(lo)}, []int{len(values)}
	}

	width := (hi - lo) / float64(n)
	labels := make([]string, n)
	for i := range labels {
		labels[i] = formatEdge(lo + float64(i)*width)
	}
	counts := make([]int, n)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	return labels, counts
}

func formatEdge(v float64) string {
	return fmt.Sprintf("%.3g", v)
}
