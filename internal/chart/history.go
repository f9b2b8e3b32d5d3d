package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/crashscope/internal/core"
)

// Event is a dated market event marked on the price history
type Event struct {
	Name  string
	Date  time.Time
	Color Color
}

// HistoryChart is a log-scale closing price line with event markers
type HistoryChart struct {
	Title         string
	YLabel        string
	Series        core.Series
	MovingAverage []core.Observation // optional overlay
	Events        []Event
}

// ParseEvent builds an event from its configured date and #rrggbb colour
func ParseEvent(name, date, color string) (Event, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return Event{}, fmt.Errorf("event %q: %w", name, err)
	}
	c, err := Hex(color)
	if err != nil {
		return Event{}, fmt.Errorf("event %q: %w", name, err)
	}
	return Event{Name: name, Date: d, Color: c}, nil
}

// dayNumber maps a date onto a continuous day axis
func dayNumber(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

func (r *Renderer) buildHistory(c HistoryChart) ([]byte, error) {
	obs := c.Series.Observations
	if len(obs) < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s has %d observations to plot", c.Series.Symbol, len(obs)))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, o := range obs {
		if o.Price <= 0 {
			return nil, core.WrapError(core.ErrInvalidObservation,
				fmt.Errorf("cannot plot non-positive price %v on a log scale", o.Price))
		}
		lo, hi = min(lo, o.Price), max(hi, o.Price)
	}

	first, last := obs[0].Date, obs[len(obs)-1].Date
	pdf := newPage(c.Title, "", r.now())
	p := newPlot(pdf, dayNumber(first), dayNumber(last), lo*0.9, hi*1.1)
	p.logY = true

	// price grid on 1-2-5 multiples of each decade
	p.setDraw(gridColor, 0.3, 0.6)
	for decade := math.Pow(10, math.Floor(math.Log10(p.yMin))); decade <= p.yMax; decade *= 10 {
		for _, m := range []float64{1, 2, 5} {
			v := decade * m
			if v < p.yMin || v > p.yMax {
				continue
			}
			p.hline(v, true)
			p.axisText(v, fmt.Sprintf("%g", v))
		}
	}

	// year ticks every five years
	for y := (first.Year()/5 + 1) * 5; y <= last.Year(); y += 5 {
		t := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		p.setDraw(gridColor, 0.3, 0.6)
		p.vline(dayNumber(t))
		pdf.SetAlpha(1, "Normal")
		p.xTick(dayNumber(t), fmt.Sprintf("%d", y))
	}
	pdf.SetAlpha(1, "Normal")

	endClip := p.clip()
	p.setDraw(priceColor, 1, 1.5)
	pdf.SetLineJoinStyle("round")
	p.polyline(dated(obs))
	if len(c.MovingAverage) > 1 {
		p.setDraw(maColor, 0.8, 1)
		p.polyline(dated(c.MovingAverage))
	}
	endClip()

	for _, ev := range c.Events {
		i, ok := c.Series.Nearest(ev.Date)
		if !ok {
			continue
		}
		x, y := dayNumber(obs[i].Date), obs[i].Price
		p.marker(x, y, 1.6, ev.Color, 1)

		// arrow up to the annotation
		p.setDraw(ev.Color, 1, 0.8)
		ax, ay := p.px(x), p.py(y)
		pdf.Line(ax, ay-2, ax, ay-10)
		pdf.SetAlpha(1, "Normal")
		pdf.SetFont("Helvetica", "", 9)
		w := pdf.GetStringWidth(ev.Name) + 3
		pdf.SetFillColor(white.R, white.G, white.B)
		pdf.SetDrawColor(ev.Color.R, ev.Color.G, ev.Color.B)
		pdf.SetTextColor(titleColor.R, titleColor.G, titleColor.B)
		pdf.SetXY(ax-w/2, ay-15)
		pdf.CellFormat(w, 5, ev.Name, "1", 0, "C", true, 0, "")
	}

	yLabel := c.YLabel
	if yLabel == "" {
		yLabel = "Price"
	}
	axisLabels(p, "Year", yLabel)
	entries := []legendEntry{{"Close", lineStyle{color: priceColor, alpha: 1, width: 1.5}}}
	if len(c.MovingAverage) > 1 {
		entries = append(entries, legendEntry{"Moving average", lineStyle{color: maColor, alpha: 0.8, width: 1}})
	}
	legend(p, entries)
	footnote(pdf, fmt.Sprintf("%s daily close, %s to %s, log scale.",
		c.Series.Symbol, first.Format("2006-01-02"), last.Format("2006-01-02")))

	return output(pdf)
}

func dated(obs []core.Observation) (xs, ys []float64) {
	xs = make([]float64, len(obs))
	ys = make([]float64, len(obs))
	for i, o := range obs {
		xs[i] = dayNumber(o.Date)
		ys[i] = o.Price
	}
	return xs, ys
}
