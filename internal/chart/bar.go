package chart

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// BarGap is the horizontal space between two bars.
const BarGap = 10

const minBarWidth = 1

// Palette rotates the hue by Step degrees per bar, starting at Base.
type Palette struct {
	Base float64
	Step float64
}

// Dashboard palettes.
var (
	ProjectPalette      = Palette{Base: 260, Step: 10}
	CollaboratorPalette = Palette{Base: 180, Step: 15}
)

// Color returns the hex colour of the i-th bar.
func (p Palette) Color(i int) string {
	hue := math.Mod(p.Base+float64(i)*p.Step, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsl(hue, 0.7, 0.6).Hex()
}

// Entry is one labelled bar value.
type Entry struct {
	Label string
	Value float64
}

// Bar is a single rectangle of a bar chart.
type Bar struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Label  string
	Value  float64
	Color  string
	// Share is the bar's percentage of the sum of all values.
	Share float64
	// LabelAt is the anchor of the label under the bar.
	LabelAt Point
}

// BarChart is the geometry of a ranked bar chart.
type BarChart struct {
	Canvas   Canvas
	Bars     []Bar
	Axis     Line
	MaxValue float64
	Empty    bool
}

// BuildBarChart lays out one bar per entry, heights proportional to the
// largest value.
func BuildBarChart(entries []Entry, c Canvas, palette Palette) BarChart {
	out := BarChart{
		Canvas: c,
		Axis:   Line{From: Point{X: c.Padding, Y: c.Padding}, To: Point{X: c.Padding, Y: c.Baseline()}},
	}
	if len(entries) == 0 {
		out.Empty = true
		return out
	}
	var total float64
	for _, e := range entries {
		if e.Value > out.MaxValue {
			out.MaxValue = e.Value
		}
		if e.Value > 0 {
			total += e.Value
		}
	}
	width := c.PlotWidth()/float64(len(entries)) - BarGap
	if width < minBarWidth {
		width = minBarWidth
	}
	out.Bars = make([]Bar, len(entries))
	for i, e := range entries {
		height := 0.0
		if out.MaxValue > 0 && e.Value > 0 {
			height = e.Value / out.MaxValue * c.PlotHeight()
		}
		share := 0.0
		if total > 0 && e.Value > 0 {
			share = e.Value / total * 100
		}
		x := c.Padding + float64(i)*(width+BarGap)
		out.Bars[i] = Bar{
			Share:   share,
			X:       x,
			Y:       c.Baseline() - height,
			Width:   width,
			Height:  height,
			Label:   e.Label,
			Value:   e.Value,
			Color:   palette.Color(i),
			LabelAt: Point{X: x + width/2, Y: c.Baseline() + 20},
		}
	}
	return out
}
