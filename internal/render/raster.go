package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/verte-zerg/xpdash/internal/chart"
)

// rasterSurface draws the geometry onto a PNG canvas.
type rasterSurface struct {
	r   gochart.Renderer
	err error
}

func (s *rasterSurface) Begin(c chart.Canvas) {
	r, err := gochart.PNG(int(c.Width), int(c.Height))
	if err != nil {
		s.err = fmt.Errorf("create png canvas: %w", err)
		return
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		s.err = fmt.Errorf("load font: %w", err)
		return
	}
	r.SetFont(font)
	s.r = r
}

func (s *rasterSurface) ready() bool { return s.err == nil && s.r != nil }

func (s *rasterSurface) Line(l chart.Line, stroke paint, width float64) {
	if !s.ready() {
		return
	}
	s.r.ResetStyle()
	s.r.SetStrokeColor(color(stroke))
	s.r.SetStrokeWidth(width)
	s.r.MoveTo(px(l.From.X), px(l.From.Y))
	s.r.LineTo(px(l.To.X), px(l.To.Y))
	s.r.Stroke()
}

func (s *rasterSurface) Curve(lc chart.LineChart, stroke, fill paint) {
	if !s.ready() || len(lc.Points) == 0 {
		return
	}
	base := lc.Canvas.Baseline()
	first, last := lc.Points[0], lc.Points[len(lc.Points)-1]

	s.r.ResetStyle()
	s.r.SetFillColor(color(fill))
	s.polyline(lc.Points)
	s.r.LineTo(px(last.X), px(base))
	s.r.LineTo(px(first.X), px(base))
	s.r.Close()
	s.r.Fill()

	s.r.ResetStyle()
	s.r.SetStrokeColor(color(stroke))
	s.r.SetStrokeWidth(3)
	s.polyline(lc.Points)
	s.r.Stroke()
}

func (s *rasterSurface) polyline(points []chart.Point) {
	for i, p := range points {
		if i == 0 {
			s.r.MoveTo(px(p.X), px(p.Y))
			continue
		}
		s.r.LineTo(px(p.X), px(p.Y))
	}
}

func (s *rasterSurface) Circle(at chart.Point, radius float64, fill, stroke paint, _ string) {
	if !s.ready() {
		return
	}
	s.r.ResetStyle()
	s.r.SetFillColor(color(fill))
	s.r.SetStrokeColor(color(stroke))
	s.r.SetStrokeWidth(2)
	s.r.Circle(radius, px(at.X), px(at.Y))
	s.r.FillStroke()
}

func (s *rasterSurface) Rect(b chart.Bar, _ string) {
	if !s.ready() || b.Height <= 0 {
		return
	}
	s.r.ResetStyle()
	s.r.SetFillColor(drawing.ColorFromHex(strings.TrimPrefix(b.Color, "#")))
	s.r.MoveTo(px(b.X), px(b.Y))
	s.r.LineTo(px(b.X+b.Width), px(b.Y))
	s.r.LineTo(px(b.X+b.Width), px(b.Y+b.Height))
	s.r.LineTo(px(b.X), px(b.Y+b.Height))
	s.r.Close()
	s.r.Fill()
}

// Wedge converts the clockwise-from-12-o'clock angles of the slice into the
// renderer's radians measured from 3 o'clock.
func (s *rasterSurface) Wedge(sl chart.Slice, fill, stroke paint, _ string) {
	if !s.ready() || sl.Empty {
		return
	}
	start := (sl.Start - 90) * math.Pi / 180
	delta := sl.Sweep() * math.Pi / 180
	cx, cy := px(sl.CX), px(sl.CY)

	s.r.ResetStyle()
	s.r.SetFillColor(color(fill))
	s.r.SetStrokeColor(color(stroke))
	s.r.SetStrokeWidth(2)
	if sl.InnerRadius > 0 {
		from := chart.Polar(sl.CX, sl.CY, sl.Radius, sl.Start)
		s.r.MoveTo(px(from.X), px(from.Y))
		s.r.ArcTo(cx, cy, sl.Radius, sl.Radius, start, delta)
		s.r.ArcTo(cx, cy, sl.InnerRadius, sl.InnerRadius, start+delta, -delta)
	} else {
		s.r.MoveTo(cx, cy)
		s.r.ArcTo(cx, cy, sl.Radius, sl.Radius, start, delta)
	}
	s.r.Close()
	s.r.FillStroke()
}

func (s *rasterSurface) Text(at chart.Point, body string, st textStyle) {
	if !s.ready() || body == "" {
		return
	}
	s.r.ResetStyle()
	size := st.size
	if st.bold {
		size *= 1.1
	}
	s.r.SetFontSize(size)
	s.r.SetFontColor(color(st.color))
	box := s.r.MeasureText(body)
	x := px(at.X)
	if st.anchor == anchorMiddle {
		x -= box.Width() / 2
	}
	s.r.Text(body, x, px(at.Y)+box.Height()/2)
}

func (s *rasterSurface) Finish(w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	if s.r == nil {
		return fmt.Errorf("png canvas not initialised")
	}
	if err := s.r.Save(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func px(v float64) int {
	return int(math.Round(v))
}

func color(p paint) drawing.Color {
	if p.hex == "" {
		return drawing.ColorTransparent
	}
	c := drawing.ColorFromHex(strings.TrimPrefix(p.hex, "#"))
	c.A = uint8(math.Round(p.alpha * 255))
	return c
}
