package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Figure size per panel.
var (
	PanelWidth  = 3 * vg.Inch
	PanelHeight = 4 * vg.Inch
)

// SampleValue is one per-sample measurement.
type SampleValue struct {
	Sample    string
	Treatment string
	Value     float64
}

// Reference is a horizontal dashed line drawn on every panel.
type Reference struct {
	Label string
	Value float64
}

// FileName turns a figure title into a file name.
func FileName(title, ext string) string {
	return strings.ReplaceAll(title, " ", "_") + ext
}

// TreatmentPanels draws one bar panel per treatment with one bar per sample,
// side by side, and writes the figure as PNG.
func TreatmentPanels(path, title, xLabel, yLabel string, treatments []string, values []SampleValue, ref *Reference) error {
	if len(treatments) == 0 {
		return fmt.Errorf("plot %s: no treatments", title)
	}

	row := make([]*plot.Plot, len(treatments))
	for j, tr := range treatments {
		var names []string
		var vals plotter.Values
		for _, sv := range values {
			if sv.Treatment == tr {
				names = append(names, sv.Sample)
				vals = append(vals, sv.Value)
			}
		}

		p := plot.New()
		p.Title.Text = "treatment " + tr
		p.X.Label.Text = xLabel
		if j == 0 {
			p.Title.Text = title + "\n" + p.Title.Text
			p.Y.Label.Text = yLabel
		}
		p.X.Tick.Label.Rotation = 0.8
		p.X.Tick.Label.XAlign = draw.XRight

		if len(vals) > 0 {
			bars, err := plotter.NewBarChart(vals, vg.Points(16))
			if err != nil {
				return fmt.Errorf("plot %s: %w", title, err)
			}
			bars.Color = plotutil.Color(j)
			p.Add(bars)
			p.NominalX(names...)
		}

		if ref != nil {
			n := float64(len(vals))
			if n == 0 {
				n = 1
			}
			line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: ref.Value}, {X: n - 0.5, Y: ref.Value}})
			if err != nil {
				return fmt.Errorf("plot %s: %w", title, err)
			}
			line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
			p.Add(line)
			if j == 0 {
				p.Legend.Add(ref.Label, line)
				p.Legend.Top = true
			}
		}
		row[j] = p
	}

	img := vgimg.New(PanelWidth*vg.Length(len(row)), PanelHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter,
		PadTop:    vg.Millimeter,
		PadBottom: vg.Millimeter,
		PadLeft:   vg.Millimeter,
		PadRight:  vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for j, p := range row {
		p.Draw(canvases[0][j])
	}

	return writePNG(path, img)
}

func writePNG(path string, img *vgimg.Canvas) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// BoxPlots draws one box per treatment from per-sample values.
// Treatments without samples get an empty slot.
func BoxPlots(path, title, yLabel string, treatments []string, values []SampleValue) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "treatment"
	p.Y.Label.Text = yLabel

	for i, tr := range treatments {
		var vals plotter.Values
		for _, sv := range values {
			if sv.Treatment == tr {
				vals = append(vals, sv.Value)
			}
		}
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), vals)
		if err != nil {
			return fmt.Errorf("plot %s: %w", title, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(treatments...)

	return savePlot(p, path, PanelWidth*vg.Length(max(len(treatments), 2))/2, PanelHeight)
}

// EffectBars draws effect counts grouped by effect, one bar series per
// treatment. counts is indexed [effect][treatment].
func EffectBars(path, title string, effects, treatments []string, counts map[string]map[string]int) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"
	p.Legend.Top = true

	w := vg.Points(8)
	for i, tr := range treatments {
		vals := make(plotter.Values, len(effects))
		for j, eff := range effects {
			vals[j] = float64(counts[eff][tr])
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return fmt.Errorf("plot %s: %w", title, err)
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = w * vg.Length(2*i-len(treatments)+1) / 2
		p.Add(bars)
		p.Legend.Add("treatment "+tr, bars)
	}
	p.NominalX(effects...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight

	return savePlot(p, path, PanelWidth*vg.Length(max(len(effects), 2))/2, PanelHeight)
}

func savePlot(p *plot.Plot, path string, width, height vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
