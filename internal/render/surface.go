package render

import (
	"io"

	"github.com/verte-zerg/xpdash/internal/chart"
)

// paint is a colour with an opacity in [0, 1].
type paint struct {
	hex   string
	alpha float64
}

func solid(hex string) paint { return paint{hex: hex, alpha: 1} }

var (
	none        = paint{}
	lineColor   = solid("#9969ff")
	areaColor   = paint{hex: "#9969ff", alpha: 0.2}
	axisColor   = paint{hex: "#ffffff", alpha: 0.2}
	gridColor   = paint{hex: "#ffffff", alpha: 0.05}
	labelColor  = paint{hex: "#ffffff", alpha: 0.6}
	textColor   = solid("#ffffff")
	passColor   = solid("#2ecc71")
	failColor   = solid("#e74c3c")
	strokeWhite = solid("#ffffff")
)

type anchor int

const (
	anchorStart anchor = iota
	anchorMiddle
)

type textStyle struct {
	size   float64
	color  paint
	anchor anchor
	bold   bool
}

// surface is a drawing target for chart geometry. Calls after the first
// failure are no-ops; Finish reports it.
type surface interface {
	Begin(c chart.Canvas)
	Line(l chart.Line, stroke paint, width float64)
	Curve(lc chart.LineChart, stroke, fill paint)
	Circle(at chart.Point, radius float64, fill, stroke paint, tip string)
	Rect(b chart.Bar, tip string)
	Wedge(s chart.Slice, fill, stroke paint, tip string)
	Text(at chart.Point, body string, st textStyle)
	Finish(w io.Writer) error
}
