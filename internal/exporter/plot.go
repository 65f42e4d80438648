package exporter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

// PlotWriter renders force against corrected displacement as PNG files.
// It is not safe for concurrent use.
type PlotWriter struct {
	Dir      string
	WidthIn  float64
	HeightIn float64
	DPI      int

	stems *nameSet
}

// NewPlotWriter returns a writer producing 8x6 inch, 150 dpi images in dir.
func NewPlotWriter(dir string) *PlotWriter {
	return &PlotWriter{Dir: dir, WidthIn: 8, HeightIn: 6, DPI: 150}
}

// WriteCurve renders one result to <sample>.png and returns the path. A
// sample whose file name, ignoring case, was already written by this writer
// gets a numeric suffix.
func (w *PlotWriter) WriteCurve(res *press.Result) (string, error) {
	if len(res.Curve.Force) == 0 || len(res.Curve.Force) != len(res.Curve.Displacement) {
		return "", apperrors.NewAppValidationError("cannot plot an empty or ragged curve").
			WithContext("sample", res.Sample)
	}

	p := plot.New()
	p.Title.Text = res.Sample
	p.X.Label.Text = "Corrected displacement (mm)"
	p.Y.Label.Text = "Force (kN)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(res.Curve.Force))
	for i := range pts {
		pts[i].X = res.Curve.Displacement[i]
		pts[i].Y = res.Curve.Force[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", apperrors.NewAppValidationError(fmt.Sprintf("plot data invalid: %v", err)).
			WithContext("sample", res.Sample)
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	if w.stems == nil {
		w.stems = newNameSet()
	}
	path := filepath.Join(w.Dir, w.stems.claim(fileStem(res.Sample), 0)+".png")
	if err := w.savePNG(p, path); err != nil {
		return "", apperrors.NewStorageError("failed to write plot", err).WithContext("path", path)
	}
	return path, nil
}

func (w *PlotWriter) savePNG(p *plot.Plot, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(w.WidthIn)*vg.Inch, vg.Length(w.HeightIn)*vg.Inch),
		vgimg.UseDPI(w.DPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
