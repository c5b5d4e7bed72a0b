// Package render draws chart geometry and formats dashboard values.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// NotAvailable is shown for values that cannot be computed.
const NotAvailable = "N/A"

// FormatXP renders an XP amount with a byte-style unit. Scaled values are
// truncated toward zero: whole kilobytes below one million, two decimals of
// megabytes above.
func FormatXP(v int64) string {
	if v == math.MinInt64 {
		// -v overflows; MaxInt64 truncates to the same digits.
		return "-" + FormatXP(math.MaxInt64)
	}
	sign := ""
	abs := v
	if v < 0 {
		sign = "-"
		abs = -v
	}
	switch {
	case abs < 1_000:
		return fmt.Sprintf("%s%d B", sign, abs)
	case abs < 1_000_000:
		return fmt.Sprintf("%s%d kB", sign, abs/1_000)
	default:
		return fmt.Sprintf("%s%d.%02d MB", sign, abs/1_000_000, (abs%1_000_000)/10_000)
	}
}

// FormatSignedXP prefixes positive amounts with a plus sign.
func FormatSignedXP(v int64) string {
	if v > 0 {
		return "+" + FormatXP(v)
	}
	return FormatXP(v)
}

// FormatRatio renders an audit ratio with two decimals, or N/A on error.
func FormatRatio(ratio float64, err error) string {
	if err != nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", ratio)
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// Tooltip builds the "label: value (percent%)" hover text.
func Tooltip(label, value string, percent float64) string {
	return fmt.Sprintf("%s: %s (%.1f%%)", label, value, percent)
}

// ShortLabel truncates a label to n runes for axis captions.
func ShortLabel(label string, n int) string {
	runes := []rune(strings.TrimSpace(label))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
