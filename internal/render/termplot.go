package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/xpdash/internal/model"
)

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisSeparator       = " │ "
	plotColor           = "\x1b[35m"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// TimelinePlot draws the cumulative XP series as a braille line plot scaled
// from zero to the series maximum. An empty series prints nothing.
func TimelinePlot(w io.Writer, title string, series []model.TimelinePoint, width, height int, forceColor bool) error {
	if len(series) == 0 {
		return nil
	}
	values := make([]float64, len(series))
	var maxV float64
	for i, p := range series {
		values[i] = float64(p.CumulativeXP)
		if values[i] > maxV {
			maxV = values[i]
		}
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	labels := axisLabels(height, int64(maxV))
	labelWidth := 0
	for _, l := range labels {
		if w := runewidth.StringWidth(l); w > labelWidth {
			labelWidth = w
		}
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth(), labelWidth)
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	cells := makeCells(height, width)
	prevX, prevY := -1, -1
	for x, v := range resample(values, width) {
		px, py := x*2, valueToRow(v, maxV, height*4)
		if prevX >= 0 {
			drawLine(prevX, prevY, px, py, func(dx, dy int) { setBrailleDot(cells, dx, dy) })
		} else {
			setBrailleDot(cells, px, py)
		}
		prevX, prevY = px, py
	}

	useColor := shouldUseColor(w, forceColor)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], labelWidth))
		row.WriteString(axisSeparator)
		if useColor {
			row.WriteString(plotColor)
		}
		for x := 0; x < width; x++ {
			row.WriteRune(brailleFromMask(cells[y][x]))
		}
		if useColor {
			row.WriteString(colorReset)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	start := series[0].Timestamp.Format("2006-01-02")
	end := series[len(series)-1].Timestamp.Format("2006-01-02")
	footer := strings.Repeat(" ", labelWidth) + axisSeparator + start
	if pad := width - runewidth.StringWidth(start) - runewidth.StringWidth(end); pad > 0 {
		footer += strings.Repeat(" ", pad) + end
	}
	_, err := fmt.Fprintln(w, footer)
	return err
}

// PlotWidthFor computes a plot width that fits next to an axis of labelWidth
// cells within the total available width.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - labelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func axisLabels(height int, maxV int64) []string {
	labels := make([]string, height)
	labels[0] = FormatXP(maxV)
	if height > 2 {
		labels[height/2] = FormatXP(maxV / 2)
	}
	if height > 1 {
		labels[height-1] = FormatXP(0)
	}
	return labels
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return cells
}

// resample stretches or averages values into exactly width columns.
func resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			// The last sample of a bucket is the cumulative value at its end.
			out[i] = values[end-1]
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := 0; i < width; i++ {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(math.Floor(pos))
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func valueToRow(v, maxV float64, rows int) int {
	if rows <= 1 || maxV <= 0 {
		return rows - 1
	}
	row := int(math.Round((1 - v/maxV) * float64(rows-1)))
	if row < 0 {
		row = 0
	}
	if row >= rows {
		row = rows - 1
	}
	return row
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy > 0 {
		dy = -dy
	}
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	cellY, cellX := y/4, x/2
	if y < 0 || x < 0 || cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

// brailleDotMask maps a dot inside a 2x4 braille cell to its Unicode bit.
func brailleDotMask(x, y int) uint8 {
	if x == 0 {
		return [4]uint8{0x01, 0x02, 0x04, 0x40}[y]
	}
	return [4]uint8{0x08, 0x10, 0x20, 0x80}[y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
