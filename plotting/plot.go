package plotting

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kcz17/pid/simulation"
)

// SaveTrace plots the measurements and controller outputs of a run to an
// image whose format is chosen by the extension of path.
func SaveTrace(trace *simulation.Trace, path string) error {
	if len(trace.Times) == 0 {
		return errors.New("SaveTrace() expected a non-empty trace")
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("could not create plot: %w", err)
	}
	p.Title.Text = fmt.Sprintf("Step response (setpoint %.2f)", trace.Setpoint)
	p.X.Label.Text = "Time"

	setpoints := make([]float64, len(trace.Times))
	for i := range setpoints {
		setpoints[i] = trace.Setpoint
	}

	err = plotutil.AddLinePoints(p,
		"Measurements", toPlotterXYs(trace.Times, trace.Measurements),
		"Controller Outputs", toPlotterXYs(trace.Times, trace.Outputs),
		"Setpoint", toPlotterXYs(trace.Times, setpoints),
	)
	if err != nil {
		return fmt.Errorf("could not add lines to plot: %w", err)
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("could not save plot to %s: %w", path, err)
	}
	return nil
}

func toPlotterXYs(x []float64, y []float64) plotter.XYs {
	points := make(plotter.XYs, len(x))
	for i := range points {
		points[i].X = x[i]
		points[i].Y = y[i]
	}
	return points
}

// RenderASCII draws the measurements of a run as a terminal chart.
func RenderASCII(trace *simulation.Trace, height int) string {
	if len(trace.Measurements) == 0 {
		return ""
	}
	return asciigraph.Plot(trace.Measurements,
		asciigraph.Height(height),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("measurements (setpoint %.2f)", trace.Setpoint)),
	)
}
