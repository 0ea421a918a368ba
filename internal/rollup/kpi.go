package rollup

import (
	"github.com/shopspring/decimal"

	"teampower/internal/core"
)

// KPIs are the scalar summary metrics of the whole ledger.
type KPIs struct {
	TotalBudget   decimal.Decimal `json:"total_budget"`
	TotalPlanned  decimal.Decimal `json:"total_planned"`
	TotalConsumed decimal.Decimal `json:"total_consumed"`
	FundingGap    decimal.Decimal `json:"funding_gap"`

	// ByCategory holds the total of every literal category seen, known or not.
	ByCategory map[core.Category]decimal.Decimal `json:"by_category"`
}

// ComputeKPIs sums amounts per category over every record, regardless of
// the reporting window. Duplicate records all contribute.
func ComputeKPIs(records []core.Transaction) KPIs {
	byCategory := make(map[core.Category]decimal.Decimal, len(core.Categories()))
	for _, c := range core.Categories() {
		byCategory[c] = decimal.Zero
	}
	for _, r := range records {
		byCategory[r.Category] = byCategory[r.Category].Add(r.Amount)
	}

	k := KPIs{
		TotalBudget:   byCategory[core.Budget],
		TotalPlanned:  byCategory[core.Planned],
		TotalConsumed: byCategory[core.Consumed],
		ByCategory:    byCategory,
	}
	k.FundingGap = k.TotalConsumed.Sub(k.TotalBudget)
	return k
}
