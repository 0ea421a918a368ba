package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

const (
	Budget   Category = "Budget"
	Planned  Category = "Planned"
	Consumed Category = "Consumed"
)

const (
	OPEX  Type = "OPEX"
	CAPEX Type = "CAPEX"
)

type (
	// Category is the ledger bucket of a transaction. The known values are
	// Budget, Planned and Consumed but any non-empty string is accepted.
	Category string

	// Type is the spending type of a transaction (OPEX or CAPEX by convention).
	Type string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID                string          `json:"id,omitempty"`
		Date              Date            `json:"date"`
		CostCenterProject string          `json:"cost_center_project"`
		CostCenterSOW     string          `json:"cost_center_sow"`
		SOWNumber         string          `json:"sow_number"`
		PONumber          string          `json:"po"`
		Amount            decimal.Decimal `json:"amount"`
		Category          Category        `json:"category"`
		Type              Type            `json:"type"`
	}
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingField    = errors.New("missing required field")
)

// Categories returns the known categories in reporting order.
func Categories() []Category {
	return []Category{Budget, Planned, Consumed}
}

// Types returns the known spending types in reporting order.
func Types() []Type {
	return []Type{OPEX, CAPEX}
}

func (c Category) IsKnown() bool {
	switch c {
	case Budget, Planned, Consumed:
		return true
	}
	return false
}

func (t Type) IsKnown() bool {
	return t == OPEX || t == CAPEX
}

// NewDate creates a new Date from year, month, day at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks that every field of the record is present. Category and
// type are not checked against the known values.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	fields := []struct {
		name, value string
	}{
		{"cost_center_project", t.CostCenterProject},
		{"cost_center_sow", t.CostCenterSOW},
		{"sow_number", t.SOWNumber},
		{"po", t.PONumber},
		{"category", string(t.Category)},
		{"type", string(t.Type)},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}
