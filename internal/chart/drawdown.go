package chart

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
)

// DrawdownLine is one episode with its trajectory aligned on days since peak
type DrawdownLine struct {
	Episode    analysis.Episode
	Trajectory analysis.Trajectory
}

// DrawdownChart overlays every drawdown from its peak
type DrawdownChart struct {
	Title    string
	Subtitle string
	XLabel   string
	Updated  time.Time // date of the last observation
	Lines    []DrawdownLine
}

var drawdownLevels = []float64{0, -0.1, -0.2, -0.3, -0.4, -0.5}

// drawdownLabel is "Current (2025): -18.9%" for the current episode and
// "2008: -56.8%" otherwise
func drawdownLabel(ep analysis.Episode) string {
	if ep.Current {
		return fmt.Sprintf("Current (%d): %s", ep.PeakYear, percent(ep.LastDecline, false))
	}
	return fmt.Sprintf("%d: %s", ep.PeakYear, percent(ep.LastDecline, false))
}

func (r *Renderer) buildDrawdowns(c DrawdownChart) ([]byte, error) {
	maxDay, minSeverity := 1, 0.0
	for _, l := range c.Lines {
		if last, ok := l.Trajectory.Last(); ok {
			maxDay = max(maxDay, last.Day)
		}
		minSeverity = min(minSeverity, l.Episode.Severity)
	}

	pdf := newPage(c.Title, c.Subtitle, r.now())
	p := newPlot(pdf, 0, float64(maxDay)*1.05, min(minSeverity*1.1, -0.55), 0.05)

	// reference levels
	p.setDraw(gridColor, 0.3, 0.8)
	for _, level := range drawdownLevels {
		p.hline(level, true)
		p.axisText(level, percent(level, false))
	}
	pdf.SetAlpha(1, "Normal")
	step := niceStep(float64(maxDay), 8)
	for d := 0.0; d <= float64(maxDay); d += step {
		p.xTick(d, fmt.Sprintf("%.0f", d))
	}

	lines := slices.Clone(c.Lines)
	style := func(l DrawdownLine) lineStyle {
		return styleFor(drawdownStyles, l.Episode.Tag, l.Episode.Severity, 0.4)
	}
	slices.SortStableFunc(lines, func(a, b DrawdownLine) int {
		return cmp.Compare(style(a).layer, style(b).layer)
	})

	endClip := p.clip()
	for _, l := range lines {
		if len(l.Trajectory) == 0 {
			continue
		}
		s := style(l)
		xs, ys := split(l.Trajectory)
		p.setDraw(s.color, s.alpha, s.width)
		pdf.SetLineCapStyle("round")
		p.polyline(xs, ys)
		p.marker(xs[len(xs)-1], ys[len(ys)-1], s.marker, s.color, s.alpha)
	}
	endClip()

	for _, l := range lines {
		last, ok := l.Trajectory.Last()
		if !ok || !r.labelDrawdown(l.Episode) {
			continue
		}
		s := style(l)
		p.label(float64(last.Day), last.Value, drawdownLabel(l.Episode), s.color, s.text, s.bold, l.Episode.Current)
	}

	axisLabels(p, c.XLabel, "Drawdown from Peak")
	legend(p, []legendEntry{
		{"Current Drawdown", drawdownStyles[analysis.TagCurrent]},
		{"Worst Historical", drawdownStyles[analysis.TagWorst]},
		{"Notable Historical", drawdownStyles[analysis.TagNotable]},
		{"Other Drawdowns", styleFor(drawdownStyles, analysis.TagOther, 0.6, 0.4)},
	})
	footnote(pdf, updateNote(c.Updated, "Drawdowns deeper than 2% from a running all-time high."))

	return output(pdf)
}

func (r *Renderer) labelDrawdown(ep analysis.Episode) bool {
	switch ep.Tag {
	case analysis.TagCurrent, analysis.TagWorst, analysis.TagNotable:
		return true
	}
	return ep.Severity < r.opts.LabelThreshold
}

func split(t analysis.Trajectory) (xs, ys []float64) {
	xs = make([]float64, len(t))
	ys = make([]float64, len(t))
	for i, pt := range t {
		xs[i] = float64(pt.Day)
		ys[i] = pt.Value
	}
	return xs, ys
}

func updateNote(updated time.Time, text string) string {
	if updated.IsZero() {
		return text
	}
	return fmt.Sprintf("Data through %s. %s", updated.Format("2006-01-02"), text)
}
