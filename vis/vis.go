// Package vis renders bc series with gonum/plot. Every output path is
// supplied by the caller; the file format follows its extension (.png,
// .svg, .pdf, ...).
package vis

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/biascorrect/bc"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

// Lines draws every series against its index and saves the figure to path.
func Lines(path, title string, series ...bc.Series) error {
	if len(series) == 0 {
		return errors.NewValueError("vis.Lines", "no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "index"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Values) == 0 {
			return errors.NewValueError("vis.Lines", "series "+s.Name+" is empty")
		}
		xys := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			xys[j] = plotter.XY{X: float64(j), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "vis.Lines: series %s", s.Name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return save(p, path)
}

// Scatter plots y against x point by point and saves the figure to path.
func Scatter(path, title string, x, y bc.Series) error {
	if len(x.Values) == 0 {
		return errors.NewValueError("vis.Scatter", "series "+x.Name+" is empty")
	}
	if len(x.Values) != len(y.Values) {
		return errors.NewDimensionError("vis.Scatter("+y.Name+")", len(x.Values), len(y.Values), 0)
	}

	xys := make(plotter.XYs, len(x.Values))
	for i := range x.Values {
		xys[i] = plotter.XY{X: x.Values[i], Y: y.Values[i]}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return errors.Wrap(err, "vis.Scatter")
	}
	sc.GlyphStyle.Color = plotutil.Color(0)
	sc.GlyphStyle.Radius = vg.Points(2)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x.Name
	p.Y.Label.Text = y.Name
	p.Add(plotter.NewGrid(), sc)
	return save(p, path)
}

// ReportPaths names the files written by SaveReport. Empty paths are skipped.
type ReportPaths struct {
	Input      string // fcst and obs lines
	Correction string // after_bc, before_bc_* and obs lines
	Scatter    string // after_bc against obs
}

// SaveReport renders the series of a training run.
func SaveReport(r bc.Report, paths ReportPaths) error {
	if paths.Input != "" {
		if err := Lines(paths.Input, "Obs and Fcst", r.Input...); err != nil {
			return err
		}
	}
	if paths.Correction != "" {
		if err := Lines(paths.Correction, "Bias correction on test data", r.Correction...); err != nil {
			return err
		}
	}
	if paths.Scatter != "" {
		after, ok1 := find(r.Correction, bc.SeriesAfterBC)
		obs, ok2 := find(r.Correction, bc.SeriesObserved)
		if !ok1 || !ok2 {
			return errors.NewValueError("vis.SaveReport", "report has no correction series")
		}
		if err := Scatter(paths.Scatter, "Corrected vs observed", obs, after); err != nil {
			return err
		}
	}
	return nil
}

func find(series []bc.Series, name string) (bc.Series, bool) {
	for _, s := range series {
		if s.Name == name {
			return s, true
		}
	}
	return bc.Series{}, false
}

func save(p *plot.Plot, path string) error {
	if path == "" {
		return errors.NewValueError("vis.save", "output path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
