package rollup

import (
	"github.com/shopspring/decimal"

	"teampower/internal/core"
)

// MonthlyPoint is the stacked OPEX/CAPEX total of one month.
type MonthlyPoint struct {
	Month YearMonth       `json:"month"`
	OPEX  decimal.Decimal `json:"OPEX"`
	CAPEX decimal.Decimal `json:"CAPEX"`
}

// Amount returns the total for t, zero for any type other than OPEX or CAPEX.
func (p MonthlyPoint) Amount(t core.Type) decimal.Decimal {
	switch t {
	case core.OPEX:
		return p.OPEX
	case core.CAPEX:
		return p.CAPEX
	}
	return decimal.Zero
}

// ComputeMonthly groups records by (month, type) and returns exactly twelve
// points in calendar order. Months without records are zero. Records whose
// type is not OPEX or CAPEX, or that fall outside the window, are left out.
func ComputeMonthly(w Window, records []core.Transaction) []MonthlyPoint {
	months := w.Months()
	points := make([]MonthlyPoint, len(months))
	for i, m := range months {
		points[i] = MonthlyPoint{Month: m, OPEX: decimal.Zero, CAPEX: decimal.Zero}
	}

	for _, r := range records {
		i := w.monthIndex(r.Date)
		if i < 0 {
			continue
		}
		switch r.Type {
		case core.OPEX:
			points[i].OPEX = points[i].OPEX.Add(r.Amount)
		case core.CAPEX:
			points[i].CAPEX = points[i].CAPEX.Add(r.Amount)
		}
	}
	return points
}
