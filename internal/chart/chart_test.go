package chart

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpdash/internal/model"
)

func timeline(values ...int64) []model.TimelinePoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.TimelinePoint, len(values))
	var sum int64
	for i, v := range values {
		sum += v
		out[i] = model.TimelinePoint{Timestamp: base.Add(time.Duration(i) * 24 * time.Hour), Amount: v, CumulativeXP: sum}
	}
	return out
}

func TestBuildLineChartScales(t *testing.T) {
	lc := BuildLineChart(timeline(100, 50), WideCanvas)
	if lc.Empty {
		t.Fatalf("expected non-empty chart")
	}
	want := []Point{{X: 60, Y: 240 - 100.0/150*180}, {X: 540, Y: 60}}
	if diff := cmp.Diff(want, lc.Points); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
	if lc.Path != "M 60 120 L 540 60" {
		t.Fatalf("unexpected path %q", lc.Path)
	}
	if lc.AreaPath != "M 60 120 L 540 60 L 540 240 L 60 240 Z" {
		t.Fatalf("unexpected area path %q", lc.AreaPath)
	}
	if len(lc.Axes) != 2 || len(lc.Grid) != GridLines+1 {
		t.Fatalf("unexpected axes/grid: %d/%d", len(lc.Axes), len(lc.Grid))
	}
}

func TestBuildLineChartIsDeterministic(t *testing.T) {
	series := timeline(10, 20, 5, 400, 1)
	a := BuildLineChart(series, WideCanvas)
	b := BuildLineChart(series, WideCanvas)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("geometry differs between runs:\n%s", diff)
	}
}

func TestBuildLineChartGuards(t *testing.T) {
	if lc := BuildLineChart(nil, WideCanvas); !lc.Empty || lc.Path != "" {
		t.Fatalf("expected empty chart for empty series")
	}

	same := []model.TimelinePoint{
		{Timestamp: time.Unix(0, 0), CumulativeXP: 5},
		{Timestamp: time.Unix(0, 0), CumulativeXP: 10},
	}
	lc := BuildLineChart(same, WideCanvas)
	for _, p := range lc.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
			t.Fatalf("x must be finite when all timestamps are equal: %+v", lc.Points)
		}
	}

	zero := timeline(0, 0)
	lc = BuildLineChart(zero, WideCanvas)
	for _, p := range lc.Points {
		if p.Y != WideCanvas.Baseline() {
			t.Fatalf("zero series should be flat on the baseline, got %+v", lc.Points)
		}
	}
}

func TestBuildBarChart(t *testing.T) {
	bc := BuildBarChart([]Entry{{Label: "a", Value: 200}, {Label: "b", Value: 100}}, WideCanvas, ProjectPalette)
	if len(bc.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bc.Bars))
	}
	wantWidth := 480.0/2 - BarGap
	if bc.Bars[0].Width != wantWidth {
		t.Fatalf("expected width %v, got %v", wantWidth, bc.Bars[0].Width)
	}
	if bc.Bars[0].Height != 180 || bc.Bars[1].Height != 90 {
		t.Fatalf("unexpected heights %v/%v", bc.Bars[0].Height, bc.Bars[1].Height)
	}
	if bc.Bars[1].X != 60+wantWidth+BarGap {
		t.Fatalf("unexpected x %v", bc.Bars[1].X)
	}
	if bc.Bars[0].Y+bc.Bars[0].Height != WideCanvas.Baseline() {
		t.Fatalf("bars must stand on the baseline")
	}
	again := BuildBarChart([]Entry{{Label: "a", Value: 200}, {Label: "b", Value: 100}}, WideCanvas, ProjectPalette)
	if bc.Bars[0].Color != again.Bars[0].Color || bc.Bars[0].Color == bc.Bars[1].Color {
		t.Fatalf("colours must be stable per index and differ between bars")
	}
	if !strings.HasPrefix(bc.Bars[0].Color, "#") {
		t.Fatalf("expected hex colour, got %q", bc.Bars[0].Color)
	}
}

func TestBuildBarChartZeroMax(t *testing.T) {
	bc := BuildBarChart([]Entry{{Label: "a", Value: 0}}, WideCanvas, ProjectPalette)
	if bc.Bars[0].Height != 0 {
		t.Fatalf("expected zero height, got %v", bc.Bars[0].Height)
	}
	if empty := BuildBarChart(nil, WideCanvas, ProjectPalette); !empty.Empty {
		t.Fatalf("expected empty bar chart")
	}
}

func TestPieSliceLargeArcFlag(t *testing.T) {
	small := BuildPieSlice(150, 150, 100, 0, 90, 0)
	if small.LargeArc || !strings.Contains(small.Path, "A 100 100 0 0 0") {
		t.Fatalf("expected small arc flag, got %q", small.Path)
	}
	large := BuildPieSlice(150, 150, 100, 0, 270, 0)
	if !large.LargeArc || !strings.Contains(large.Path, "A 100 100 0 1 0") {
		t.Fatalf("expected large arc flag, got %q", large.Path)
	}
	if !strings.HasPrefix(small.Path, "M 150 150 L 250 150") {
		t.Fatalf("pie wedge should start at the centre then the end angle: %q", small.Path)
	}
}

func TestPieSliceTopOrigin(t *testing.T) {
	p := Polar(150, 150, 100, 0)
	if Num(p.X) != "150" || Num(p.Y) != "50" {
		t.Fatalf("0° should be at the top, got %+v", p)
	}
}

func TestDonutWedgeHasTwoArcs(t *testing.T) {
	s := BuildPieSlice(150, 150, 100, 0, 120, 60)
	if strings.Count(s.Path, "A ") != 2 || strings.Count(s.Path, "L ") != 1 {
		t.Fatalf("donut wedge should have two arcs and one connector: %q", s.Path)
	}
	if !strings.Contains(s.Path, "A 60 60 0 0 1") {
		t.Fatalf("inner arc should sweep back: %q", s.Path)
	}
}

func TestFullShareIsClamped(t *testing.T) {
	d := BuildDonutChart(100, 0, 150, 150, 100, 60)
	if d.Empty {
		t.Fatalf("expected donut geometry")
	}
	a := d.Slices[0]
	if a.End >= 360 || a.End != MaxSweep {
		t.Fatalf("expected end clamped below 360, got %v", a.End)
	}
	if a.Sweep() <= 0 {
		t.Fatalf("expected positive sweep")
	}
	if Num(a.StartPoint.X) == Num(a.EndPoint.X) && Num(a.StartPoint.Y) == Num(a.EndPoint.Y) {
		t.Fatalf("arc endpoints coincide, arc would have zero sweep: %q", a.Path)
	}
	if d.PercentA != 100 || d.PercentB != 0 {
		t.Fatalf("unexpected percents %v/%v", d.PercentA, d.PercentB)
	}
	if got := d.Slices[1].End - d.Slices[0].Start; got != 360 {
		t.Fatalf("slices should cover 360°, got %v", got)
	}
}

func TestPieSliceClampAndEmpty(t *testing.T) {
	full := BuildPieSlice(0, 0, 10, 0, 360, 0)
	if full.End != MaxSweep || full.Empty {
		t.Fatalf("expected clamped full slice, got %+v", full)
	}
	if zero := BuildPieSlice(0, 0, 10, 45, 45, 0); !zero.Empty || zero.Path != "" {
		t.Fatalf("zero sweep must be empty, got %+v", zero)
	}
}

func TestDonutZeroTotal(t *testing.T) {
	if d := BuildDonutChart(0, 0, 150, 150, 100, 0); !d.Empty {
		t.Fatalf("zero total must be empty")
	}
	d := BuildDonutChart(1, 3, 150, 150, 100, 0)
	if d.Slices[0].End != 90 || d.Slices[1].Start != 90 || d.Slices[1].End != 360 {
		t.Fatalf("unexpected slice angles: %+v", d.Slices)
	}
}

func TestNum(t *testing.T) {
	cases := map[float64]string{
		1:         "1",
		1.005:     "1",
		2.456:     "2.46",
		-0.001:    "0",
		123.10000: "123.1",
	}
	for in, want := range cases {
		if got := Num(in); got != want {
			t.Fatalf("Num(%v) = %q, want %q", in, got, want)
		}
	}
}
