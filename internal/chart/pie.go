package chart

import "math"

// MaxSweep is the largest sweep drawn as a single arc. A full 360° arc has
// identical start and end points, which arc primitives render as nothing.
const MaxSweep = 359.99

// Slice is a pie wedge or, with an inner radius, a donut wedge.
type Slice struct {
	CX          float64
	CY          float64
	Radius      float64
	InnerRadius float64
	Start       float64
	End         float64
	LargeArc    bool
	StartPoint  Point
	EndPoint    Point
	Path        string
	Empty       bool
}

// Sweep returns the swept angle in degrees.
func (s Slice) Sweep() float64 {
	return s.End - s.Start
}

// Polar converts an angle in degrees, measured clockwise from 12 o'clock,
// into canvas coordinates.
func Polar(cx, cy, radius, angleDeg float64) Point {
	rad := (angleDeg - 90) * math.Pi / 180
	return Point{X: cx + radius*math.Cos(rad), Y: cy + radius*math.Sin(rad)}
}

// BuildPieSlice describes the wedge between two angles. Sweeps of 360° or
// more are clamped to MaxSweep; a zero or negative sweep yields an empty slice.
func BuildPieSlice(cx, cy, radius, startDeg, endDeg, innerRadius float64) Slice {
	s := Slice{CX: cx, CY: cy, Radius: radius, InnerRadius: innerRadius, Start: startDeg, End: endDeg}
	if endDeg-startDeg >= 360 {
		s.End = startDeg + MaxSweep
	}
	if s.Sweep() <= 0 || radius <= 0 {
		s.Empty = true
		return s
	}
	s.LargeArc = s.Sweep() > 180
	flag := 0.0
	if s.LargeArc {
		flag = 1
	}

	// The arc is drawn counter-clockwise from the end angle back to the start.
	from := Polar(cx, cy, radius, s.End)
	to := Polar(cx, cy, radius, s.Start)
	s.StartPoint, s.EndPoint = from, to

	var p pathBuilder
	if innerRadius > 0 {
		innerFrom := Polar(cx, cy, innerRadius, s.End)
		innerTo := Polar(cx, cy, innerRadius, s.Start)
		p.cmd("M", from.X, from.Y)
		p.cmd("A", radius, radius, 0, flag, 0, to.X, to.Y)
		p.cmd("L", innerTo.X, innerTo.Y)
		p.cmd("A", innerRadius, innerRadius, 0, flag, 1, innerFrom.X, innerFrom.Y)
		p.cmd("Z")
	} else {
		p.cmd("M", cx, cy)
		p.cmd("L", from.X, from.Y)
		p.cmd("A", radius, radius, 0, flag, 0, to.X, to.Y)
		p.cmd("Z")
	}
	s.Path = p.String()
	return s
}

// Donut is a two-share circular chart.
type Donut struct {
	Slices   [2]Slice
	PercentA float64
	PercentB float64
	Empty    bool
}

// BuildDonutChart splits the circle between two non-negative shares. Share A
// starts at 12 o'clock; share B fills the rest up to 360°. A zero total is
// empty and is drawn as a text placeholder.
func BuildDonutChart(shareA, shareB, cx, cy, radius, innerRadius float64) Donut {
	total := shareA + shareB
	if shareA < 0 || shareB < 0 || total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Donut{Empty: true}
	}
	d := Donut{
		PercentA: shareA / total * 100,
		PercentB: shareB / total * 100,
	}
	angleA := d.PercentA / 100 * 360
	d.Slices[0] = BuildPieSlice(cx, cy, radius, 0, angleA, innerRadius)
	startB := angleA
	if !d.Slices[0].Empty {
		startB = d.Slices[0].End
	}
	d.Slices[1] = BuildPieSlice(cx, cy, radius, startB, 360, innerRadius)
	if shareB == 0 {
		// Only the clamp remainder is left; nothing to draw.
		d.Slices[1].Empty = true
		d.Slices[1].Path = ""
	}
	return d
}
