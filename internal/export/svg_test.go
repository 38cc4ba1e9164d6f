package export

import (
	"strings"
	"testing"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/viz"
)

func stateAt(px, py float64) dynamo.State {
	x := make(dynamo.State, dynamo.StateDim)
	x[dynamo.StatePX] = px
	x[dynamo.StatePY] = py
	x[dynamo.StateQW] = 1
	return x
}

func TestGroundTrackConvertsNED(t *testing.T) {
	states := []dynamo.State{stateAt(1, 2), {1, 2}}

	ned := GroundTrack(states, dynamo.NotationNED)
	if len(ned) != 1 {
		t.Fatalf("expected short states skipped, got %d points", len(ned))
	}
	if ned[0] != (Point{X: 2, Y: 1}) {
		t.Errorf("expected east 2 north 1, got %+v", ned[0])
	}

	enu := GroundTrack(states, dynamo.NotationENU)
	if enu[0] != (Point{X: 1, Y: 2}) {
		t.Errorf("expected ENU passthrough, got %+v", enu[0])
	}
}

func TestTrajectoryToSVG(t *testing.T) {
	if TrajectoryToSVG([]Point{{0, 0}}, 100, 100, "#fff") != "" {
		t.Error("expected no output for a single point")
	}
	svg := TrajectoryToSVG([]Point{{0, 0}, {1, 1}, {2, 0}}, 100, 50, "#ff0000")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("expected a complete svg document")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments, got %d", strings.Count(svg, " L"))
	}
	if !strings.Contains(svg, `stroke="#ff0000"`) {
		t.Error("expected the stroke colour")
	}
}

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 4)
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("expected 2 dots, got %d", strings.Count(svg, "<circle"))
	}
	if CanvasToSVG(nil, 1) != "" {
		t.Error("expected no output for a nil canvas")
	}
}

func TestTrackCanvas(t *testing.T) {
	c := TrackCanvas([]Point{{0, 0}, {10, 10}}, 10, 5)
	dots := 0
	for _, row := range c.Grid {
		for _, r := range row {
			if r != 0x2800 {
				dots++
			}
		}
	}
	if dots == 0 {
		t.Error("expected the track drawn on the canvas")
	}
}
