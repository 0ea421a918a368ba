package rollup

import (
	"github.com/shopspring/decimal"

	"teampower/internal/core"
)

// Views are the three derived views of one ledger snapshot.
type Views struct {
	Year    int            `json:"year"`
	KPIs    KPIs           `json:"kpis"`
	YTD     YTDSeries      `json:"ytd"`
	Monthly []MonthlyPoint `json:"monthly"`
}

// Engine computes views for a fixed reporting window. It holds no state
// besides the window and may be shared between goroutines.
type Engine struct {
	window Window
}

func NewEngine(w Window) *Engine {
	return &Engine{window: w}
}

func (e *Engine) Window() Window { return e.window }

// Recompute derives every view from the same snapshot so that they all
// describe one point in time. records is only read.
func (e *Engine) Recompute(records []core.Transaction) Views {
	return Views{
		Year:    e.window.Year(),
		KPIs:    ComputeKPIs(records),
		YTD:     ComputeYTD(e.window, records),
		Monthly: ComputeMonthly(e.window, records),
	}
}

// Stats summarises the ledger for the transaction list.
type Stats struct {
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total_amount"`
	Latest *core.Date      `json:"latest_date,omitempty"`
}

// ComputeStats counts records, sums every amount and finds the latest date.
func ComputeStats(records []core.Transaction) Stats {
	s := Stats{Count: len(records), Total: decimal.Zero}
	for _, r := range records {
		s.Total = s.Total.Add(r.Amount)
		if r.Date.IsZero() {
			continue
		}
		if s.Latest == nil || r.Date.After(s.Latest.Time) {
			d := r.Date
			s.Latest = &d
		}
	}
	return s
}
