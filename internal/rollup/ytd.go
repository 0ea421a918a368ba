package rollup

import (
	"sort"

	"github.com/shopspring/decimal"

	"teampower/internal/core"
)

// YTDPoint is the cumulative value of each category at the end of one day.
type YTDPoint struct {
	Date   core.Date                         `json:"date"`
	Values map[core.Category]decimal.Decimal `json:"values"`
}

// YTDSeries has one point per day of the window. Categories lists the
// series keys: the known categories first, then any other literal category
// found inside the window in lexical order.
type YTDSeries struct {
	Categories []core.Category `json:"categories"`
	Points     []YTDPoint      `json:"points"`
}

// ComputeYTD builds the year-to-date series.
//
// For each category the amounts are grouped by exact date, placed on the
// daily index with zero for days without records, and accumulated in
// ascending date order. Records dated outside the window are ignored.
// Values may decrease because amounts are signed.
func ComputeYTD(w Window, records []core.Transaction) YTDSeries {
	days := w.Days()

	deltas := make(map[core.Category][]decimal.Decimal, len(core.Categories()))
	for _, c := range core.Categories() {
		deltas[c] = zeroes(len(days))
	}
	var extra []core.Category

	for _, r := range records {
		i := w.dayIndex(r.Date)
		if i < 0 {
			continue
		}
		d, ok := deltas[r.Category]
		if !ok {
			d = zeroes(len(days))
			deltas[r.Category] = d
			extra = append(extra, r.Category)
		}
		d[i] = d[i].Add(r.Amount)
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	categories := append(core.Categories(), extra...)

	points := make([]YTDPoint, len(days))
	running := make(map[core.Category]decimal.Decimal, len(categories))
	for i, day := range days {
		values := make(map[core.Category]decimal.Decimal, len(categories))
		for _, c := range categories {
			running[c] = running[c].Add(deltas[c][i])
			values[c] = running[c]
		}
		points[i] = YTDPoint{Date: day, Values: values}
	}

	return YTDSeries{Categories: categories, Points: points}
}

// Last returns the final point of the series, the year-end totals.
func (s YTDSeries) Last() (YTDPoint, bool) {
	if len(s.Points) == 0 {
		return YTDPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

func zeroes(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
