// Package viz renders charts for fitted models.
package viz

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
)

// FeatureImportancePlot writes a bar chart of importances labelled by names.
// The image format follows the file extension of path (.png, .svg, .pdf, ...).
func FeatureImportancePlot(names []string, importances []float64, path string) error {
	if len(importances) == 0 {
		return errors.NewValueError("FeatureImportancePlot", "no importances to plot")
	}
	if len(names) != len(importances) {
		return errors.NewDimensionError("FeatureImportancePlot", len(importances), len(names), 0)
	}
	if err := errors.CheckMatrix("FeatureImportancePlot", rowVector(importances), 1, len(importances)); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "Mean impurity decrease"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewModelError("FeatureImportancePlot", "failed to save plot", err)
	}
	return nil
}

type rowVector []float64

func (r rowVector) At(_, j int) float64 { return r[j] }
