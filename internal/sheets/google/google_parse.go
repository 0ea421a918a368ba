package google

import (
	"fmt"
	"strings"

	"teampower/internal/core"
	"teampower/internal/export"
)

var headerRow = export.Header

func toRow(t core.Transaction) []any {
	return []any{
		t.Date.String(),
		t.CostCenterProject,
		t.CostCenterSOW,
		t.SOWNumber,
		t.PONumber,
		t.Amount.String(),
		string(t.Category),
		string(t.Type),
	}
}

// parseRows converts a values matrix (as returned by Sheets API) into
// records. Sheet row numbers are 1-based and appear in errors.
func parseRows(values [][]any) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		if i == 0 && strings.EqualFold(safeGet(row, 0), "date") {
			continue
		}
		t, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("sheet row %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseRow(row []string) (core.Transaction, error) {
	if len(row) < len(headerRow) {
		return core.Transaction{}, fmt.Errorf("%w: expected %d columns, got %d", core.ErrMalformedRecord, len(headerRow), len(row))
	}
	date, err := core.ParseDate(row[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(row[5])
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:              date,
		CostCenterProject: row[1],
		CostCenterSOW:     row[2],
		SOWNumber:         row[3],
		PONumber:          row[4],
		Amount:            amount,
		Category:          core.Category(row[6]),
		Type:              core.Type(row[7]),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
