package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/crashscope/internal/analysis"
)

// Color is an RGB colour with 0-255 components
type Color struct {
	R, G, B int
}

// Hex parses #rrggbb or rrggbb
func Hex(s string) (Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

func mustHex(s string) Color {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	background = mustHex("#f8f9fa")
	titleColor = mustHex("#333333")
	mutedColor = mustHex("#666666")
	gridColor  = mustHex("#808080")
	white      = Color{255, 255, 255}
	black      = Color{0, 0, 0}
	priceColor = mustHex("#1f77b4")
	maColor    = mustHex("#ff7f0e")
)

// lineStyle is how one episode is drawn; width is in points
type lineStyle struct {
	color  Color
	alpha  float64
	width  float64
	marker float64 // end marker radius in mm
	text   float64 // label font size
	bold   bool
	layer  int // higher layers are drawn last
}

var drawdownStyles = map[analysis.Tag]lineStyle{
	analysis.TagCurrent: {color: mustHex("#E6550D"), alpha: 1.0, width: 3.0, marker: 1.6, text: 10, bold: true, layer: 3},
	analysis.TagWorst:   {color: mustHex("#756bb1"), alpha: 0.9, width: 2.5, marker: 1.4, text: 10, layer: 2},
	analysis.TagNotable: {color: mustHex("#2ca02c"), alpha: 0.8, width: 2.0, marker: 1.0, text: 10, layer: 1},
	analysis.TagOther:   {color: mustHex("#bdbdbd"), width: 1.0, marker: 0.8, text: 9},
}

var recoveryStyles = map[analysis.Tag]lineStyle{
	analysis.TagCurrent: {color: mustHex("#1f77b4"), alpha: 1.0, width: 3.0, marker: 1.6, text: 11, bold: true, layer: 3},
	analysis.TagFast:    {color: mustHex("#2ca02c"), alpha: 0.8, width: 2.0, marker: 1.4, text: 10, layer: 2},
	analysis.TagSlow:    {color: mustHex("#d62728"), alpha: 0.8, width: 2.0, marker: 1.4, text: 10, layer: 2},
	analysis.TagOther:   {color: mustHex("#7f7f7f"), width: 1.0, marker: 1.1, text: 9},
}

// styleFor returns the tag's style; untagged episodes fade in with severity
func styleFor(styles map[analysis.Tag]lineStyle, tag analysis.Tag, severity, baseAlpha float64) lineStyle {
	s, ok := styles[tag]
	if !ok || tag == analysis.TagOther {
		s = styles[analysis.TagOther]
		s.alpha = min(baseAlpha+abs(severity)*0.5, 1)
	}
	return s
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// percent formats a fraction as -12.3% or +12.3%
func percent(f float64, sign bool) string {
	if sign && f >= 0 {
		return fmt.Sprintf("+%.1f%%", f*100)
	}
	return fmt.Sprintf("%.1f%%", f*100)
}
