package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"teampower/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{
			Date:              core.NewDate(2025, 1, 5),
			CostCenterProject: "CCP1",
			CostCenterSOW:     "CCS1",
			SOWNumber:         "1001",
			PONumber:          "2001",
			Amount:            decimal.RequireFromString("1250.50"),
			Category:          core.Budget,
			Type:              core.OPEX,
		},
		{
			Date:              core.NewDate(2025, 3, 10),
			CostCenterProject: "CCP, Phase 2",
			CostCenterSOW:     "CCS2",
			SOWNumber:         "1002",
			PONumber:          "2002",
			Amount:            decimal.RequireFromString("-75"),
			Category:          "Reserve",
			Type:              "MISC",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "Date,Cost Center Project,Cost Center SOW,SOW Number,PO,Amount,Category,Type" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "2025-01-05,CCP1,CCS1,1001,2001,1250.5,Budget,OPEX" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
	if lines[2] != `2025-03-10,"CCP, Phase 2",CCS2,1002,2002,-75,Reserve,MISC` {
		t.Fatalf("unexpected quoted row: %q", lines[2])
	}
}

func TestWriteCSVEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(Header, ",") {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestParseCSVReadsWrittenFile(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := sample()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Amount.Equal(want[i].Amount) || got[i].Date.String() != want[i].Date.String() ||
			got[i].CostCenterProject != want[i].CostCenterProject || got[i].Category != want[i].Category {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestParseCSVColumnOrderAndWhitespace(t *testing.T) {
	in := "Type, Category, Amount, PO, SOW Number, Cost Center SOW, Cost Center Project, Date\n" +
		" CAPEX , Consumed , 12,5 , 2001 , 1001 , CCS1 , CCP1 , 2025-02-01 \n"
	_, err := ParseCSV(strings.NewReader(in))
	if err == nil {
		t.Fatal("expected unquoted comma decimal to shift columns and fail")
	}

	in = "Type,Category,Amount,PO,SOW Number,Cost Center SOW,Cost Center Project,Date\n" +
		"CAPEX,Consumed,\"12,5\",2001,1001,CCS1,CCP1,2025-02-01\n"
	got, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Type != core.CAPEX || !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestParseCSVErrors(t *testing.T) {
	head := strings.Join(Header, ",") + "\n"
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"missing column", "Date,Amount\n2025-01-01,1\n", core.ErrMalformedRecord},
		{"bad amount", head + "2025-01-01,a,b,c,d,abc,Budget,OPEX\n", core.ErrMalformedRecord},
		{"bad date", head + "01/02/2025,a,b,c,d,1,Budget,OPEX\n", core.ErrInvalidDate},
		{"blank field", head + "2025-01-01,a,,c,d,1,Budget,OPEX\n", core.ErrMissingField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tc.in))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(""))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}
