package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() Transaction {
	return Transaction{
		Date:              NewDate(2025, time.January, 5),
		CostCenterProject: "CCP1",
		CostCenterSOW:     "CCS1",
		SOWNumber:         "1001",
		PONumber:          "2001",
		Amount:            decimal.NewFromInt(100),
		Category:          Budget,
		Type:              OPEX,
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-01", true},
		{" 2025-12-31 ", true},
		{"2025-02-30", false},
		{"01/05/2025", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %v", tc.in, d)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, time.March, 9)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-09"` {
		t.Fatalf("unexpected json %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("expected %v, got %v", d, back)
	}
	if err := json.Unmarshal([]byte(`"March 9"`), &back); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	unknown := validTransaction()
	unknown.Type = "MISC"
	unknown.Category = "Forecast"
	if err := unknown.Validate(); err != nil {
		t.Fatalf("unknown enum values must be accepted, got %v", err)
	}

	mutations := []struct {
		name string
		fn   func(*Transaction)
		want error
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"no project", func(tx *Transaction) { tx.CostCenterProject = " " }, ErrMissingField},
		{"no sow cost center", func(tx *Transaction) { tx.CostCenterSOW = "" }, ErrMissingField},
		{"no sow", func(tx *Transaction) { tx.SOWNumber = "" }, ErrMissingField},
		{"no po", func(tx *Transaction) { tx.PONumber = "" }, ErrMissingField},
		{"no category", func(tx *Transaction) { tx.Category = "" }, ErrMissingField},
		{"no type", func(tx *Transaction) { tx.Type = "" }, ErrMissingField},
	}
	for _, m := range mutations {
		tx := validTransaction()
		m.fn(&tx)
		if err := tx.Validate(); !errors.Is(err, m.want) {
			t.Fatalf("%s: expected %v, got %v", m.name, m.want, err)
		}
	}
}

func TestKnownEnums(t *testing.T) {
	for _, c := range Categories() {
		if !c.IsKnown() {
			t.Fatalf("%s should be known", c)
		}
	}
	if Category("budget").IsKnown() {
		t.Fatalf("category matching is case sensitive")
	}
	if !OPEX.IsKnown() || !CAPEX.IsKnown() || Type("MISC").IsKnown() {
		t.Fatalf("unexpected type classification")
	}
}
