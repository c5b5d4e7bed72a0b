package chart

import (
	"github.com/verte-zerg/xpdash/internal/model"
)

// GridLines is the number of horizontal grid intervals.
const GridLines = 5

// LineChart is the geometry of the cumulative XP timeline.
type LineChart struct {
	Canvas Canvas
	// Points has one entry per series element, in series order.
	Points   []Point
	Path     string
	AreaPath string
	Axes     []Line
	Grid     []Line
	MaxValue int64
	Empty    bool
}

// BuildLineChart scales a timeline onto the canvas. Time maps linearly to x
// between the first and last timestamp; value maps to y from zero to the
// series maximum.
func BuildLineChart(series []model.TimelinePoint, c Canvas) LineChart {
	out := LineChart{Canvas: c, Axes: axes(c), Grid: grid(c)}
	if len(series) == 0 {
		out.Empty = true
		return out
	}

	minT, maxT := series[0].Timestamp, series[0].Timestamp
	var maxV int64
	for _, p := range series {
		if p.Timestamp.Before(minT) {
			minT = p.Timestamp
		}
		if p.Timestamp.After(maxT) {
			maxT = p.Timestamp
		}
		if p.CumulativeXP > maxV {
			maxV = p.CumulativeXP
		}
	}
	out.MaxValue = maxV

	span := float64(maxT.Sub(minT))
	if span == 0 {
		span = 1
	}
	xScale := func(p model.TimelinePoint) float64 {
		return c.Padding + float64(p.Timestamp.Sub(minT))/span*c.PlotWidth()
	}
	yScale := func(v int64) float64 {
		if maxV <= 0 {
			return c.Baseline()
		}
		return c.Baseline() - float64(v)/float64(maxV)*c.PlotHeight()
	}

	var path pathBuilder
	out.Points = make([]Point, len(series))
	for i, p := range series {
		pt := Point{X: xScale(p), Y: yScale(p.CumulativeXP)}
		out.Points[i] = pt
		if i == 0 {
			path.cmd("M", pt.X, pt.Y)
		} else {
			path.cmd("L", pt.X, pt.Y)
		}
	}
	out.Path = path.String()

	var area pathBuilder
	area.b.WriteString(out.Path)
	first, last := out.Points[0], out.Points[len(out.Points)-1]
	area.cmd("L", last.X, c.Baseline())
	area.cmd("L", first.X, c.Baseline())
	area.cmd("Z")
	out.AreaPath = area.String()
	return out
}

func axes(c Canvas) []Line {
	return []Line{
		{From: Point{X: c.Padding, Y: c.Baseline()}, To: Point{X: c.Width - c.Padding, Y: c.Baseline()}},
		{From: Point{X: c.Padding, Y: c.Padding}, To: Point{X: c.Padding, Y: c.Baseline()}},
	}
}

func grid(c Canvas) []Line {
	lines := make([]Line, 0, GridLines+1)
	for i := 0; i <= GridLines; i++ {
		y := c.Padding + float64(i)*c.PlotHeight()/GridLines
		lines = append(lines, Line{From: Point{X: c.Padding, Y: y}, To: Point{X: c.Width - c.Padding, Y: y}})
	}
	return lines
}
