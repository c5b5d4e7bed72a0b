// Package chart turns normalized series into drawable geometry.
//
// Every builder is pure: the same input always yields the same coordinates,
// so the output can be compared in tests without a drawing surface.
package chart

import (
	"math"
	"strconv"
	"strings"
)

// Canvas is the logical drawing area of a chart.
type Canvas struct {
	Width   float64
	Height  float64
	Padding float64
}

// Default canvases match the dashboard layout.
var (
	WideCanvas   = Canvas{Width: 600, Height: 300, Padding: 60}
	SquareCanvas = Canvas{Width: 300, Height: 300, Padding: 0}
)

// PlotWidth returns the horizontal space inside the padding.
func (c Canvas) PlotWidth() float64 {
	return math.Max(c.Width-2*c.Padding, 0)
}

// PlotHeight returns the vertical space inside the padding.
func (c Canvas) PlotHeight() float64 {
	return math.Max(c.Height-2*c.Padding, 0)
}

// Baseline is the y coordinate of the horizontal axis.
func (c Canvas) Baseline() float64 {
	return c.Height - c.Padding
}

// Point is a 2D coordinate.
type Point struct {
	X float64
	Y float64
}

// Line is a straight segment.
type Line struct {
	From Point
	To   Point
}

type pathBuilder struct {
	b strings.Builder
}

func (p *pathBuilder) cmd(op string, coords ...float64) {
	if p.b.Len() > 0 {
		p.b.WriteByte(' ')
	}
	p.b.WriteString(op)
	for _, c := range coords {
		p.b.WriteByte(' ')
		p.b.WriteString(Num(c))
	}
}

func (p *pathBuilder) String() string {
	return p.b.String()
}

// Num formats a coordinate with at most two decimals.
func Num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
