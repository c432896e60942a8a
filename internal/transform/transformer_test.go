package transform

import (
	"testing"

	"github.com/castlemilk/bankfeed/backend/internal/oracle"
)

func sharedColumnMapping() oracle.FieldMapping {
	return oracle.FieldMapping{
		Date:        oracle.FieldRef{SourceField: "Datum", Format: "DD/MM/YYYY"},
		Outgoing:    oracle.FieldRef{SourceField: "Betrag"},
		Incoming:    oracle.FieldRef{SourceField: "Betrag"},
		Currency:    oracle.FieldRef{SourceField: "fixed"},
		Description: oracle.FieldRef{SourceField: "Verwendungszweck"},
		Code:        oracle.FieldRef{SourceField: "none"},
	}
}

func splitColumnMapping() oracle.FieldMapping {
	return oracle.FieldMapping{
		Date:        oracle.FieldRef{SourceField: "Date", Format: "YYYY-MM-DD"},
		Outgoing:    oracle.FieldRef{SourceField: "Debit"},
		Incoming:    oracle.FieldRef{SourceField: "Credit"},
		Currency:    oracle.FieldRef{SourceField: "Currency"},
		Description: oracle.FieldRef{SourceField: "Description"},
		Code:        oracle.FieldRef{SourceField: "Code"},
	}
}

func TestTransformSharedSignedColumn(t *testing.T) {
	tr := NewRowTransformer(sharedColumnMapping(), "EUR")

	tests := []struct {
		name       string
		amount     string
		wantKind   string
		wantAmount float64
	}{
		{"negative is outgoing", "-1.234,56", "-", 1234.56},
		{"positive is incoming", "250,00", "+", 250},
		{"zero is incoming", "0,00", "+", 0},
		{"unparseable drops", "n/a", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := map[string]string{
				"Datum":            "12/03/2024",
				"Betrag":           tt.amount,
				"Verwendungszweck": "REWE MARKT",
			}
			got := tr.Transform(row)
			if got.Kind != tt.wantKind || got.Amount != tt.wantAmount {
				t.Errorf("Transform kind/amount = %q/%f, want %q/%f", got.Kind, got.Amount, tt.wantKind, tt.wantAmount)
			}
			if got.Date != "2024-03-12" {
				t.Errorf("Date = %q, want 2024-03-12", got.Date)
			}
			if got.Currency != "EUR" {
				t.Errorf("Currency = %q, want fixed default EUR", got.Currency)
			}
			if got.Code != "" {
				t.Errorf("Code = %q, want empty for none mapping", got.Code)
			}
		})
	}
}

func TestTransformSplitColumns(t *testing.T) {
	tr := NewRowTransformer(splitColumnMapping(), "EUR")

	tests := []struct {
		name       string
		debit      string
		credit     string
		wantKind   string
		wantAmount float64
	}{
		{"debit only", "42.50", "", "-", 42.50},
		{"credit only", "", "1,000.00", "+", 1000},
		{"both positive prefers outgoing", "42.50", "99.99", "-", 42.50},
		{"neither positive drops", "0.00", "0.00", "", 0},
		{"both empty drops", "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := map[string]string{
				"Date":        "2024-03-12",
				"Debit":       tt.debit,
				"Credit":      tt.credit,
				"Currency":    "USD",
				"Description": "ACME CORP",
				"Code":        "TRX-1",
			}
			got := tr.Transform(row)
			if got.Kind != tt.wantKind || got.Amount != tt.wantAmount {
				t.Errorf("Transform kind/amount = %q/%f, want %q/%f", got.Kind, got.Amount, tt.wantKind, tt.wantAmount)
			}
			if got.Currency != "USD" {
				t.Errorf("Currency = %q, want USD", got.Currency)
			}
			if got.Code != "TRX-1" {
				t.Errorf("Code = %q, want TRX-1", got.Code)
			}
		})
	}
}

func TestTransformMissingDate(t *testing.T) {
	tr := NewRowTransformer(splitColumnMapping(), "EUR")
	got := tr.Transform(map[string]string{"Debit": "10.00", "Description": "X"})
	if got.Date != "" {
		t.Errorf("Date = %q, want empty for missing source field", got.Date)
	}
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		line      string
		separator string
		want      []string
	}{
		{"a;b;c", ";", []string{"a", "b", "c"}},
		{`"quoted, comma",b`, ",", []string{"quoted, comma", "b"}},
		{"a\tb", "\t", []string{"a", "b"}},
		{"a|b|", "|", []string{"a", "b", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitFields(tt.line, tt.separator)
			if err != nil {
				t.Fatalf("SplitFields: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitFields = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRowMap(t *testing.T) {
	header := []string{"Date", " Amount ", "Description"}
	fields := []string{"2024-03-12", "10.00"}
	row := RowMap(header, fields)
	if row["Date"] != "2024-03-12" {
		t.Errorf("Date = %q", row["Date"])
	}
	if row["Amount"] != "10.00" {
		t.Errorf("Amount = %q, want trimmed header name to map", row["Amount"])
	}
	if _, ok := row["Description"]; ok {
		t.Error("Description should be absent when the row is short")
	}
}
