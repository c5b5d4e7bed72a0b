package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/xpdash/internal/chart"
	"github.com/verte-zerg/xpdash/internal/model"
)

// Format selects the image encoding of rendered charts.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported encodings.
var ErrUnknownFormat = errors.New("unknown chart format")

// ParseFormat validates a format name. An empty name selects SVG.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".svg"
}

// Placeholder messages for charts without data.
const (
	NoXPData            = "No XP data"
	NoAuditData         = "No audit data"
	NoProjectData       = "No project data"
	NoCollaborationData = "No collaboration data"
)

// Renderer encodes chart geometry into images. It does no aggregation;
// every value it shows arrives precomputed.
type Renderer struct {
	format Format
}

// New returns a renderer for the given format.
func New(format Format) *Renderer {
	if format != FormatPNG {
		format = FormatSVG
	}
	return &Renderer{format: format}
}

// Format reports the encoding used by the renderer.
func (r *Renderer) Format() Format {
	return r.format
}

func (r *Renderer) surface() surface {
	if r.format == FormatPNG {
		return &rasterSurface{}
	}
	return &svgSurface{}
}

// Placeholder draws a centred message on an otherwise empty canvas.
func (r *Renderer) Placeholder(w io.Writer, c chart.Canvas, message string) error {
	s := r.surface()
	s.Begin(c)
	s.Text(chart.Point{X: c.Width / 2, Y: c.Height / 2}, message, textStyle{size: 14, color: labelColor, anchor: anchorMiddle})
	return s.Finish(w)
}

// XPTimeline draws the cumulative XP line chart. Points carry the date and
// running total as hover text.
func (r *Renderer) XPTimeline(w io.Writer, lc chart.LineChart, series []model.TimelinePoint) error {
	if lc.Empty || len(series) != len(lc.Points) {
		return r.Placeholder(w, lc.Canvas, NoXPData)
	}
	s := r.surface()
	s.Begin(lc.Canvas)
	for _, g := range lc.Grid {
		s.Line(g, gridColor, 1)
	}
	for _, a := range lc.Axes {
		s.Line(a, axisColor, 2)
	}
	for i, g := range lc.Grid {
		value := lc.MaxValue - lc.MaxValue*int64(i)/chart.GridLines
		at := chart.Point{X: lc.Canvas.Padding - 30, Y: g.From.Y}
		s.Text(at, FormatXP(value), textStyle{size: 10, color: labelColor, anchor: anchorMiddle})
	}
	s.Curve(lc, lineColor, areaColor)
	for i, p := range lc.Points {
		tip := fmt.Sprintf("%s: %s", series[i].Timestamp.Format("2006-01-02"), FormatXP(series[i].CumulativeXP))
		s.Circle(p, 4, lineColor, strokeWhite, tip)
	}
	first, last := series[0].Timestamp, series[len(series)-1].Timestamp
	base := lc.Canvas.Baseline() + 20
	s.Text(chart.Point{X: lc.Canvas.Padding, Y: base}, first.Format("Jan 2006"), textStyle{size: 10, color: labelColor, anchor: anchorMiddle})
	s.Text(chart.Point{X: lc.Canvas.Width - lc.Canvas.Padding, Y: base}, last.Format("Jan 2006"), textStyle{size: 10, color: labelColor, anchor: anchorMiddle})
	return s.Finish(w)
}

// ProjectBars draws the top projects ranked by XP.
func (r *Renderer) ProjectBars(w io.Writer, bc chart.BarChart) error {
	return r.bars(w, bc, NoProjectData, func(b chart.Bar) string {
		return Tooltip(b.Label, FormatXP(int64(b.Value)), b.Share)
	})
}

// CollaboratorBars draws the most frequent collaborators.
func (r *Renderer) CollaboratorBars(w io.Writer, bc chart.BarChart) error {
	return r.bars(w, bc, NoCollaborationData, func(b chart.Bar) string {
		unit := "projects"
		if b.Value == 1 {
			unit = "project"
		}
		return Tooltip(b.Label, fmt.Sprintf("%d %s together", int64(b.Value), unit), b.Share)
	})
}

func (r *Renderer) bars(w io.Writer, bc chart.BarChart, empty string, tip func(chart.Bar) string) error {
	if bc.Empty {
		return r.Placeholder(w, bc.Canvas, empty)
	}
	s := r.surface()
	s.Begin(bc.Canvas)
	s.Line(bc.Axis, axisColor, 2)
	s.Line(chart.Line{
		From: chart.Point{X: bc.Canvas.Padding, Y: bc.Canvas.Baseline()},
		To:   chart.Point{X: bc.Canvas.Width - bc.Canvas.Padding, Y: bc.Canvas.Baseline()},
	}, axisColor, 2)
	for _, b := range bc.Bars {
		s.Rect(b, tip(b))
		s.Text(b.LabelAt, ShortLabel(b.Label, 8), textStyle{size: 10, color: labelColor, anchor: anchorMiddle})
	}
	return s.Finish(w)
}

// AuditPie draws the given versus received audit split with the formatted
// ratio in the middle.
func (r *Renderer) AuditPie(w io.Writer, d chart.Donut, up, down float64, ratio string) error {
	c := chart.SquareCanvas
	if d.Empty {
		return r.Placeholder(w, c, NoAuditData)
	}
	s := r.surface()
	s.Begin(c)
	s.Wedge(d.Slices[0], passColor, strokeWhite, Tooltip("Given", FormatXP(int64(up)), d.PercentA))
	s.Wedge(d.Slices[1], failColor, strokeWhite, Tooltip("Received", FormatXP(int64(down)), d.PercentB))
	center := chart.Point{X: d.Slices[0].CX, Y: d.Slices[0].CY}
	if d.Slices[0].Empty {
		center = chart.Point{X: d.Slices[1].CX, Y: d.Slices[1].CY}
	}
	s.Text(center, ratio, textStyle{size: 24, color: textColor, anchor: anchorMiddle, bold: true})
	legend(s, c, passColor, "Given", failColor, "Received")
	return s.Finish(w)
}

// PassFailDonut draws passed versus failed projects with the success rate in
// the middle.
func (r *Renderer) PassFailDonut(w io.Writer, d chart.Donut, rate model.PassRate) error {
	c := chart.SquareCanvas
	if d.Empty {
		return r.Placeholder(w, c, NoProjectData)
	}
	s := r.surface()
	s.Begin(c)
	s.Wedge(d.Slices[0], passColor, strokeWhite, Tooltip("Passed", FormatCount(int64(rate.Passed)), d.PercentA))
	s.Wedge(d.Slices[1], failColor, strokeWhite, Tooltip("Failed", FormatCount(int64(rate.Failed)), d.PercentB))
	center := chart.Point{X: d.Slices[0].CX, Y: d.Slices[0].CY}
	if d.Slices[0].Empty {
		center = chart.Point{X: d.Slices[1].CX, Y: d.Slices[1].CY}
	}
	s.Text(chart.Point{X: center.X, Y: center.Y - 8}, fmt.Sprintf("%.0f%%", rate.SuccessRatePercent), textStyle{size: 24, color: textColor, anchor: anchorMiddle, bold: true})
	s.Text(chart.Point{X: center.X, Y: center.Y + 16}, "Success", textStyle{size: 12, color: labelColor, anchor: anchorMiddle})
	legend(s, c,
		passColor, fmt.Sprintf("Passed: %d", rate.Passed),
		failColor, fmt.Sprintf("Failed: %d", rate.Failed))
	return s.Finish(w)
}

func legend(s surface, c chart.Canvas, colorA paint, labelA string, colorB paint, labelB string) {
	y := c.Height - 12
	for i, item := range []struct {
		color paint
		label string
	}{{colorA, labelA}, {colorB, labelB}} {
		x := 20 + float64(i)*(c.Width/2)
		s.Circle(chart.Point{X: x, Y: y}, 5, item.color, none, "")
		s.Text(chart.Point{X: x + 10, Y: y}, item.label, textStyle{size: 12, color: textColor})
	}
}
