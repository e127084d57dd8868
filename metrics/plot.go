package metrics

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// PlotReport writes a per-class F1 bar chart of the report to path.
// The image format follows the file extension (png, svg, pdf, ...).
func PlotReport(r *ClassificationReport, path string) error {
	if r == nil || len(r.Classes) == 0 {
		return errors.NewValueError("PlotReport", "report has no classes")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("F1 by class (accuracy %.3f)", r.Accuracy)
	p.Y.Label.Text = "F1"
	p.Y.Min = 0
	p.Y.Max = 1

	values := make(plotter.Values, len(r.Classes))
	names := make([]string, len(r.Classes))
	for i, c := range r.Classes {
		values[i] = c.F1
		names[i] = c.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(r.Classes)+2) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save chart to %s", filepath.Base(path))
	}
	return nil
}
