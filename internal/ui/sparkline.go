package ui

import (
	"strings"
)

// SparklineChars are the Unicode block characters for rendering sparklines,
// 8 levels of height from empty to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one block character each, scaled to the
// largest value. Zero renders as the lowest block.
func Sparkline(values []int64) string {
	var max int64
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		idx := 0
		if max > 0 && v > 0 {
			idx = int(float64(v) / float64(max) * float64(len(SparklineChars)-1))
			if idx < 1 {
				idx = 1
			}
		}
		sb.WriteRune(SparklineChars[idx])
	}
	return sb.String()
}

// Bar renders a horizontal bar of up to width cells for value out of max.
// Any positive value gets at least one cell.
func Bar(value, max int64, width int) string {
	if width <= 0 || max <= 0 || value <= 0 {
		return ""
	}
	filled := int(float64(value) / float64(max) * float64(width))
	if filled < 1 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled)
}
