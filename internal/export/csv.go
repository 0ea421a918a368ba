// Package export reads and writes the ledger as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"teampower/internal/core"
)

// Header is the column order of exported files.
var Header = []string{
	"Date",
	"Cost Center Project",
	"Cost Center SOW",
	"SOW Number",
	"PO",
	"Amount",
	"Category",
	"Type",
}

// WriteCSV writes the header followed by one row per record.
func WriteCSV(w io.Writer, records []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date.String(),
			r.CostCenterProject,
			r.CostCenterSOW,
			r.SOWNumber,
			r.PONumber,
			r.Amount.String(),
			string(r.Category),
			string(r.Type),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads records written by WriteCSV. Columns are matched by header
// name so their order may differ. Any invalid row fails the whole parse with
// an error naming the row number.
func ParseCSV(r io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(head))
	for i, h := range head {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range Header {
		if _, ok := index[strings.ToLower(h)]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrMalformedRecord, h)
		}
	}
	col := func(row []string, name string) string {
		i := index[strings.ToLower(name)]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := []core.Transaction{}
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", core.ErrMalformedRecord, rowNum, err)
		}

		t, err := parseRow(func(name string) string { return col(row, name) })
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseRow(get func(string) string) (core.Transaction, error) {
	date, err := core.ParseDate(get("Date"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(get("Amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:              date,
		CostCenterProject: get("Cost Center Project"),
		CostCenterSOW:     get("Cost Center SOW"),
		SOWNumber:         get("SOW Number"),
		PONumber:          get("PO"),
		Amount:            amount,
		Category:          core.Category(get("Category")),
		Type:              core.Type(get("Type")),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
