package chart

import (
	"math"

	"github.com/go-pdf/fpdf"
)

const (
	pageW = 297.0
	pageH = 210.0

	ptToMM = 0.3528
)

// plot maps data coordinates onto a rectangle of the page. All positions are
// in millimetres from the top-left corner.
type plot struct {
	pdf        *fpdf.Fpdf
	left, top  float64
	width      float64
	height     float64
	xMin, xMax float64
	yMin, yMax float64
	logY       bool
}

func newPlot(pdf *fpdf.Fpdf, xMin, xMax, yMin, yMax float64) *plot {
	if xMax <= xMin {
		xMax = xMin + 1
	}
	if yMax <= yMin {
		yMax = yMin + 1
	}
	return &plot{
		pdf:  pdf,
		left: 24, top: 32,
		width: 250, height: 148,
		xMin: xMin, xMax: xMax,
		yMin: yMin, yMax: yMax,
	}
}

func (p *plot) right() float64  { return p.left + p.width }
func (p *plot) bottom() float64 { return p.top + p.height }

func (p *plot) px(x float64) float64 {
	return p.left + (x-p.xMin)/(p.xMax-p.xMin)*p.width
}

func (p *plot) py(y float64) float64 {
	lo, hi := p.yMin, p.yMax
	if p.logY {
		y, lo, hi = math.Log10(y), math.Log10(lo), math.Log10(hi)
	}
	return p.bottom() - (y-lo)/(hi-lo)*p.height
}

// clip restricts drawing to the plot area until the returned func is called
func (p *plot) clip() func() {
	p.pdf.ClipRect(p.left, p.top, p.width, p.height, false)
	return p.pdf.ClipEnd
}

func (p *plot) setDraw(c Color, alpha, widthPt float64) {
	p.pdf.SetDrawColor(c.R, c.G, c.B)
	p.pdf.SetAlpha(alpha, "Normal")
	p.pdf.SetLineWidth(widthPt * ptToMM)
}

// polyline draws the points in data coordinates
func (p *plot) polyline(xs, ys []float64) {
	if len(xs) == 0 {
		return
	}
	p.pdf.MoveTo(p.px(xs[0]), p.py(ys[0]))
	for i := 1; i < len(xs); i++ {
		p.pdf.LineTo(p.px(xs[i]), p.py(ys[i]))
	}
	p.pdf.DrawPath("D")
}

func (p *plot) hline(y float64, dashed bool) {
	if dashed {
		p.pdf.SetDashPattern([]float64{1.5, 1}, 0)
		defer p.pdf.SetDashPattern([]float64{}, 0)
	}
	p.pdf.Line(p.left, p.py(y), p.right(), p.py(y))
}

func (p *plot) vline(x float64) {
	p.pdf.Line(p.px(x), p.top, p.px(x), p.bottom())
}

func (p *plot) marker(x, y, r float64, c Color, alpha float64) {
	p.pdf.SetAlpha(alpha, "Normal")
	p.pdf.SetFillColor(c.R, c.G, c.B)
	p.pdf.SetDrawColor(white.R, white.G, white.B)
	p.pdf.SetLineWidth(0.2)
	p.pdf.Circle(p.px(x), p.py(y), r, "FD")
}

// label writes text in a white box next to (x, y). Labels in the right part
// of the plot are placed to the left of the point.
func (p *plot) label(x, y float64, text string, c Color, size float64, bold, border bool) {
	style := ""
	if bold {
		style = "B"
	}
	p.pdf.SetFont("Helvetica", style, size)
	w := p.pdf.GetStringWidth(text) + 2
	h := size*ptToMM + 1.6

	cx, cy := p.px(x), p.py(y)
	bx := cx + 2
	if cx+w+2 > p.right() || (cx-p.left)/p.width > 0.7 {
		bx = cx - w - 2
	}
	by := cy - h/2

	p.pdf.SetAlpha(0.8, "Normal")
	p.pdf.SetFillColor(white.R, white.G, white.B)
	boxStyle := "F"
	if border {
		boxStyle = "FD"
		p.pdf.SetDrawColor(c.R, c.G, c.B)
		p.pdf.SetLineWidth(0.3)
	}
	p.pdf.RoundedRect(bx, by, w, h, 0.8, "1234", boxStyle)

	p.pdf.SetAlpha(1, "Normal")
	p.pdf.SetTextColor(c.R, c.G, c.B)
	p.pdf.SetXY(bx, by)
	p.pdf.CellFormat(w, h, text, "", 0, "C", false, 0, "")
}

// axisText writes small grey text centred vertically on y at the plot's left
func (p *plot) axisText(y float64, text string) {
	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(gridColor.R, gridColor.G, gridColor.B)
	w := p.pdf.GetStringWidth(text)
	p.pdf.SetXY(p.left-w-2, p.py(y)-2)
	p.pdf.CellFormat(w, 4, text, "", 0, "R", false, 0, "")
}

// xTick writes a tick label under the plot at x
func (p *plot) xTick(x float64, text string) {
	p.pdf.SetFont("Helvetica", "", 8)
	p.pdf.SetTextColor(mutedColor.R, mutedColor.G, mutedColor.B)
	w := p.pdf.GetStringWidth(text) + 2
	p.pdf.SetXY(p.px(x)-w/2, p.bottom()+1)
	p.pdf.CellFormat(w, 4, text, "", 0, "C", false, 0, "")
}

// niceStep picks a 1-2-5 step giving roughly n intervals over span
func niceStep(span float64, n int) float64 {
	if span <= 0 || n <= 0 {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r <= 1:
		return mag
	case r <= 2:
		return 2 * mag
	case r <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}
