// Package cache persists the ranked drawdown table of each analysed symbol.
// The table is advisory output; analysis never reads it back.
package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
)

const dateLayout = "2006-01-02"

// Header is the column order of the cache table
var Header = []string{
	"symbol", "rank", "tag", "current",
	"peak_date", "peak_year", "peak_price",
	"trough_date", "trough_price",
	"severity", "last_decline", "duration_days",
}

// Record is one row of the cache table
type Record struct {
	Symbol      string       `json:"symbol"`
	Rank        int          `json:"rank"`
	Tag         analysis.Tag `json:"tag"`
	Current     bool         `json:"current"`
	PeakDate    time.Time    `json:"peak_date"`
	PeakYear    int          `json:"peak_year"`
	PeakPrice   float64      `json:"peak_price"`
	TroughDate  time.Time    `json:"trough_date"`
	TroughPrice float64      `json:"trough_price"`
	Severity    float64      `json:"severity"`
	LastDecline float64      `json:"last_decline"`
	Duration    int          `json:"duration_days"`
}

// FromEpisodes converts ranked episodes into cache rows, keeping their order
func FromEpisodes(symbol string, episodes []analysis.Episode) []Record {
	records := make([]Record, len(episodes))
	for i, ep := range episodes {
		records[i] = Record{
			Symbol:      symbol,
			Rank:        ep.Rank,
			Tag:         ep.Tag,
			Current:     ep.Current,
			PeakDate:    ep.PeakDate,
			PeakYear:    ep.PeakYear,
			PeakPrice:   ep.PeakPrice,
			TroughDate:  ep.TroughDate,
			TroughPrice: ep.TroughPrice,
			Severity:    ep.Severity,
			LastDecline: ep.LastDecline,
			Duration:    ep.Duration,
		}
	}
	return records
}

// Row formats the record in Header order
func (r Record) Row() []string {
	return []string{
		r.Symbol,
		strconv.Itoa(r.Rank),
		r.Tag.String(),
		strconv.FormatBool(r.Current),
		r.PeakDate.Format(dateLayout),
		strconv.Itoa(r.PeakYear),
		formatFloat(r.PeakPrice),
		r.TroughDate.Format(dateLayout),
		formatFloat(r.TroughPrice),
		formatFloat(r.Severity),
		formatFloat(r.LastDecline),
		strconv.Itoa(r.Duration),
	}
}

// ParseRow is the inverse of Row
func ParseRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(row))
	}

	var (
		r   Record
		err error
	)
	p := rowParser{row: row}
	r.Symbol = row[0]
	r.Rank = p.int(1)
	r.Tag, err = analysis.ParseTag(row[2])
	if err != nil {
		return Record{}, err
	}
	r.Current = p.bool(3)
	r.PeakDate = p.date(4)
	r.PeakYear = p.int(5)
	r.PeakPrice = p.float(6)
	r.TroughDate = p.date(7)
	r.TroughPrice = p.float(8)
	r.Severity = p.float(9)
	r.LastDecline = p.float(10)
	r.Duration = p.int(11)

	if p.err != nil {
		return Record{}, p.err
	}
	return r, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// rowParser keeps the first conversion error
type rowParser struct {
	row []string
	err error
}

func (p *rowParser) fail(col int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %w", Header[col], err)
	}
}

func (p *rowParser) int(col int) int {
	v, err := strconv.Atoi(p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) float(col int) float64 {
	v, err := strconv.ParseFloat(p.row[col], 64)
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) bool(col int) bool {
	v, err := strconv.ParseBool(p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}

func (p *rowParser) date(col int) time.Time {
	v, err := time.Parse(dateLayout, p.row[col])
	if err != nil {
		p.fail(col, err)
	}
	return v
}
