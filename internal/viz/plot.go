package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
)

// PlotColumn names a value plotted from a state.
type PlotColumn string

const (
	ColumnAltitude PlotColumn = "altitude"
	ColumnSpeed    PlotColumn = "speed"
)

// Series extracts one column from a run. column is altitude, speed or any
// state name such as "pz" or "wx".
func Series(states []dynamo.State, notation dynamo.Notation, column string) ([]float64, error) {
	index := -1
	for i, name := range dynamo.StateNames() {
		if name == column {
			index = i
		}
	}
	if index < 0 && column != string(ColumnAltitude) && column != string(ColumnSpeed) {
		return nil, fmt.Errorf("viz: unknown column %q", column)
	}

	out := make([]float64, 0, len(states))
	for _, x := range states {
		if len(x) < dynamo.StateDim {
			continue
		}
		switch PlotColumn(column) {
		case ColumnAltitude:
			out = append(out, observability.Altitude(notation, x))
		case ColumnSpeed:
			out = append(out, r3.Norm(x.Velocity()))
		default:
			out = append(out, x[index])
		}
	}
	return out, nil
}

// PlotRun renders one column of a run, downsampled to width points.
func PlotRun(states []dynamo.State, notation dynamo.Notation, column string, width, height int) (string, error) {
	series, err := Series(states, notation, column)
	if err != nil {
		return "", err
	}
	if len(series) == 0 {
		return "", fmt.Errorf("viz: run has no states")
	}
	return asciigraph.Plot(downsample(series, width),
		asciigraph.Height(height),
		asciigraph.Caption(column)), nil
}

func downsample(data []float64, n int) []float64 {
	if n <= 0 || len(data) <= n {
		return data
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = data[i*len(data)/n]
	}
	return out
}
