package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// legendEntry is one row of the legend box
type legendEntry struct {
	text  string
	style lineStyle
}

// newPage starts a landscape A4 document with the chart background and titles
func newPage(title, subtitle string, created time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCreationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title, true)
	pdf.SetCreator("crashscope", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	pdf.SetFillColor(background.R, background.G, background.B)
	pdf.Rect(0, 0, pageW, pageH, "F")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(titleColor.R, titleColor.G, titleColor.B)
	pdf.SetXY(0, 8)
	pdf.CellFormat(pageW, 10, title, "", 0, "C", false, 0, "")

	if subtitle != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(mutedColor.R, mutedColor.G, mutedColor.B)
		pdf.SetXY(0, 19)
		pdf.CellFormat(pageW, 6, subtitle, "", 0, "C", false, 0, "")
	}
	return pdf
}

// axisLabels writes the x label under the plot and the rotated y label left of it
func axisLabels(p *plot, xLabel, yLabel string) {
	pdf := p.pdf
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(titleColor.R, titleColor.G, titleColor.B)

	if xLabel != "" {
		pdf.SetXY(p.left, p.bottom()+7)
		pdf.CellFormat(p.width, 5, xLabel, "", 0, "C", false, 0, "")
	}
	if yLabel != "" {
		cx, cy := 6.0, p.top+p.height/2
		pdf.TransformBegin()
		pdf.TransformRotate(90, cx, cy)
		w := pdf.GetStringWidth(yLabel)
		pdf.Text(cx-w/2, cy+1.5, yLabel)
		pdf.TransformEnd()
	}
}

// footnote writes a small note at the bottom-left of the page
func footnote(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetTextColor(mutedColor.R, mutedColor.G, mutedColor.B)
	pdf.Text(6, pageH-5, text)
}

// legend draws a boxed legend in the plot's top-right corner
func legend(p *plot, entries []legendEntry) {
	pdf := p.pdf
	pdf.SetFont("Helvetica", "", 8)

	textW := 0.0
	for _, e := range entries {
		textW = max(textW, pdf.GetStringWidth(e.text))
	}
	rowH := 5.0
	w, h := textW+16, rowH*float64(len(entries))+2
	x, y := p.right()-w-2, p.top+2

	pdf.SetAlpha(0.9, "Normal")
	pdf.SetFillColor(white.R, white.G, white.B)
	pdf.SetDrawColor(gridColor.R, gridColor.G, gridColor.B)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, w, h, "FD")

	for i, e := range entries {
		ly := y + 1 + rowH*float64(i) + rowH/2
		pdf.SetAlpha(max(e.style.alpha, 0.7), "Normal")
		pdf.SetDrawColor(e.style.color.R, e.style.color.G, e.style.color.B)
		pdf.SetLineWidth(e.style.width * ptToMM)
		pdf.Line(x+2, ly, x+10, ly)

		pdf.SetAlpha(1, "Normal")
		pdf.SetTextColor(titleColor.R, titleColor.G, titleColor.B)
		pdf.Text(x+12, ly+1.2, e.text)
	}
}

// output serialises the document
func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}
