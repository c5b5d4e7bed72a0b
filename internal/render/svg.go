package render

import (
	"bytes"
	"fmt"
	"html"
	"io"

	"github.com/verte-zerg/xpdash/internal/chart"
)

// svgSurface writes a standalone SVG document. Hover text is carried by
// <title> children, which browsers show as native tooltips.
type svgSurface struct {
	buf bytes.Buffer
}

func (s *svgSurface) printf(format string, args ...any) {
	fmt.Fprintf(&s.buf, format, args...)
}

func (s *svgSurface) Begin(c chart.Canvas) {
	w, h := chart.Num(c.Width), chart.Num(c.Height)
	s.printf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n", w, h, w, h)
}

func (s *svgSurface) Line(l chart.Line, stroke paint, width float64) {
	s.printf(`<line x1="%s" y1="%s" x2="%s" y2="%s"%s stroke-width="%s"/>`+"\n",
		chart.Num(l.From.X), chart.Num(l.From.Y), chart.Num(l.To.X), chart.Num(l.To.Y),
		paintAttr("stroke", stroke), chart.Num(width))
}

func (s *svgSurface) Curve(lc chart.LineChart, stroke, fill paint) {
	s.printf(`<path d="%s"%s stroke="none"/>`+"\n", lc.AreaPath, paintAttr("fill", fill))
	s.printf(`<path d="%s" fill="none"%s stroke-width="3"/>`+"\n", lc.Path, paintAttr("stroke", stroke))
}

func (s *svgSurface) Circle(at chart.Point, radius float64, fill, stroke paint, tip string) {
	s.printf(`<circle cx="%s" cy="%s" r="%s"%s%s stroke-width="2">`,
		chart.Num(at.X), chart.Num(at.Y), chart.Num(radius), paintAttr("fill", fill), paintAttr("stroke", stroke))
	s.title(tip)
	s.printf("</circle>\n")
}

func (s *svgSurface) Rect(b chart.Bar, tip string) {
	s.printf(`<rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s">`,
		chart.Num(b.X), chart.Num(b.Y), chart.Num(b.Width), chart.Num(b.Height), b.Color)
	s.title(tip)
	s.printf("</rect>\n")
}

func (s *svgSurface) Wedge(sl chart.Slice, fill, stroke paint, tip string) {
	if sl.Empty {
		return
	}
	s.printf(`<path d="%s"%s%s stroke-width="2">`, sl.Path, paintAttr("fill", fill), paintAttr("stroke", stroke))
	s.title(tip)
	s.printf("</path>\n")
}

func (s *svgSurface) Text(at chart.Point, body string, st textStyle) {
	textAnchor := "start"
	if st.anchor == anchorMiddle {
		textAnchor = "middle"
	}
	weight := ""
	if st.bold {
		weight = ` font-weight="bold"`
	}
	s.printf(`<text x="%s" y="%s" text-anchor="%s" dominant-baseline="middle" font-family="sans-serif" font-size="%s"%s%s>%s</text>`+"\n",
		chart.Num(at.X), chart.Num(at.Y), textAnchor, chart.Num(st.size), paintAttr("fill", st.color), weight, html.EscapeString(body))
}

func (s *svgSurface) title(tip string) {
	if tip != "" {
		s.printf("<title>%s</title>", html.EscapeString(tip))
	}
}

func (s *svgSurface) Finish(w io.Writer) error {
	s.printf("</svg>\n")
	_, err := s.buf.WriteTo(w)
	return err
}

func paintAttr(name string, p paint) string {
	if p.hex == "" {
		return fmt.Sprintf(` %s="none"`, name)
	}
	if p.alpha >= 1 {
		return fmt.Sprintf(` %s="%s"`, name, p.hex)
	}
	return fmt.Sprintf(` %s="%s" %s-opacity="%s"`, name, p.hex, name, chart.Num(p.alpha))
}
