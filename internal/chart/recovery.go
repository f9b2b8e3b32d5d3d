package chart

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
)

// RecoveryLine is one recovery with its trajectory aligned on days since trough
type RecoveryLine struct {
	Episode    analysis.RecoveryEpisode
	Trajectory analysis.Trajectory
}

// RecoveryChart overlays the rebound after every drawdown's trough
type RecoveryChart struct {
	Title    string
	Subtitle string
	XLabel   string
	YLabel   string
	Updated  time.Time
	Lines    []RecoveryLine
}

const (
	recoveryXMin = -50
	recoveryXMax = 100
	recoveryYMin = -0.05
	recoveryYMax = 1.2
)

var recoveryLevels = []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0}

func recoveryLabel(ep analysis.RecoveryEpisode, value float64) string {
	if ep.Current {
		return fmt.Sprintf("Current (%d): %s", ep.PeakYear, percent(value, true))
	}
	return fmt.Sprintf("%d: %s", ep.PeakYear, percent(value, true))
}

func (r *Renderer) buildRecoveries(c RecoveryChart) ([]byte, error) {
	pdf := newPage(c.Title, c.Subtitle, r.now())
	p := newPlot(pdf, recoveryXMin, recoveryXMax, recoveryYMin, recoveryYMax)

	p.setDraw(gridColor, 0.3, 0.8)
	for _, level := range recoveryLevels {
		p.hline(level, true)
		p.axisText(level, percent(level, true))
	}
	pdf.SetAlpha(1, "Normal")
	for d := recoveryXMin; d <= recoveryXMax; d += 25 {
		p.xTick(float64(d), fmt.Sprintf("%d", d))
	}

	// the bottom
	p.setDraw(gridColor, 0.5, 1)
	p.vline(0)
	pdf.SetAlpha(1, "Normal")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(black.R, black.G, black.B)
	pdf.SetFillColor(white.R, white.G, white.B)
	pdf.SetXY(p.px(0)-7, p.py(recoveryYMin)-5)
	pdf.CellFormat(14, 4.5, "Bottom", "1", 0, "C", true, 0, "")

	lines := slices.Clone(c.Lines)
	style := func(l RecoveryLine) lineStyle {
		return styleFor(recoveryStyles, l.Episode.Tag, l.Episode.Severity, 0.3)
	}
	slices.SortStableFunc(lines, func(a, b RecoveryLine) int {
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
		if !ok || !r.labelRecovery(l) || !inRecoveryView(last) {
			continue
		}
		s := style(l)
		p.label(float64(last.Day), last.Value, recoveryLabel(l.Episode, last.Value), s.color, s.text, s.bold, l.Episode.Current)
	}

	axisLabels(p, c.XLabel, c.YLabel)
	legend(p, []legendEntry{
		{"Current Recovery", recoveryStyles[analysis.TagCurrent]},
		{"Fast Recoveries", recoveryStyles[analysis.TagFast]},
		{"Slow Recoveries", recoveryStyles[analysis.TagSlow]},
		{"Other Periods", styleFor(recoveryStyles, analysis.TagOther, 0.6, 0.3)},
	})
	footnote(pdf, updateNote(c.Updated, "Rebound from the lowest close of each drawdown deeper than 2%."))

	return output(pdf)
}

func (r *Renderer) labelRecovery(l RecoveryLine) bool {
	switch l.Episode.Tag {
	case analysis.TagCurrent, analysis.TagFast, analysis.TagSlow:
		return true
	}
	return l.Trajectory.Max() > r.opts.RecoveryLabelThreshold
}

func inRecoveryView(pt analysis.Point) bool {
	return pt.Day >= recoveryXMin && pt.Day <= recoveryXMax &&
		pt.Value >= recoveryYMin && pt.Value <= recoveryYMax
}
