package format

import (
	"math"
	"testing"
)

func TestDetectNumberFormat(t *testing.T) {
	tests := []struct {
		input         string
		wantType      NumberFormatType
		wantDecimal   string
		minConfidence float64
	}{
		{"1.234,56", FormatEuropean, ",", 0.95},
		{"-1.234,56", FormatEuropean, ",", 0.95},
		{"1.234.567,89", FormatEuropean, ",", 0.9},
		{"1,234.56", FormatUS, ".", 0.95},
		{"1,234,567.89", FormatUS, ".", 0.9},
		{"1'234.56", FormatSwiss, ".", 0.85},
		{"1'234'567.89", FormatSwiss, ".", 0.85},
		{"1,23,456.78", FormatIndian, ".", 0.85},
		{"12,34,567.00", FormatIndian, ".", 0.85},
		{"1,234,567", FormatUS, ".", 0.7},
		{"1.234.567", FormatEuropean, ",", 0.7},
		{"1234.56", FormatUS, ".", 0.8},
		{"12,50", FormatEuropean, ",", 0.95},
		{"1234", FormatUnknown, ".", 0},
		{"", FormatUnknown, ".", 0},
		{"€ 1.234,56", FormatEuropean, ",", 0.95},
		{"$1,234.56", FormatUS, ".", 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DetectNumberFormat(tt.input)
			if got.Type != tt.wantType {
				t.Errorf("DetectNumberFormat(%q).Type = %q, want %q", tt.input, got.Type, tt.wantType)
			}
			if got.DecimalSep != tt.wantDecimal {
				t.Errorf("DetectNumberFormat(%q).DecimalSep = %q, want %q", tt.input, got.DecimalSep, tt.wantDecimal)
			}
			if got.Confidence < tt.minConfidence {
				t.Errorf("DetectNumberFormat(%q).Confidence = %f, want >= %f", tt.input, got.Confidence, tt.minConfidence)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1'234.56", 1234.56},
		{"1,23,456.78", 123456.78},
		{"-1.234,56", -1234.56},
		{"(1,234.56)", -1234.56},
		{"1.234,56-", -1234.56},
		{"€ -12,50", -12.50},
		{"$ 0.99", 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, _, ok := Parse(tt.input)
			if !ok {
				t.Fatalf("Parse(%q) not ok", tt.input)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Parse(%q) = %f, want %f", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmountInvalid(t *testing.T) {
	f := NumberFormat{Type: FormatUS, DecimalSep: ".", ThousandSep: ","}
	for _, input := range []string{"", "   ", "abc", "--", "()"} {
		if _, ok := ParseAmount(input, f); ok {
			t.Errorf("ParseAmount(%q) ok, want not ok", input)
		}
	}
}

func TestFormatAmountRoundTrip(t *testing.T) {
	// parse(format(parse(s))) == parse(s)
	inputs := []string{"1.234,56", "1,234.56", "1'234.56", "1,23,456.78"}

	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			v, f, ok := Parse(s)
			if !ok {
				t.Fatalf("Parse(%q) not ok", s)
			}
			rendered := FormatAmount(v, f)
			v2, ok := ParseAmount(rendered, f)
			if !ok {
				t.Fatalf("ParseAmount(%q) not ok", rendered)
			}
			if math.Abs(v-v2) > 1e-9 {
				t.Errorf("round trip through %q: %f != %f", rendered, v, v2)
			}
		})
	}
}

func TestFormatAmountGrouping(t *testing.T) {
	tests := []struct {
		value float64
		f     NumberFormat
		want  string
	}{
		{1234.56, NumberFormat{Type: FormatEuropean, DecimalSep: ",", ThousandSep: "."}, "1.234,56"},
		{1234.56, NumberFormat{Type: FormatUS, DecimalSep: ".", ThousandSep: ","}, "1,234.56"},
		{1234.56, NumberFormat{Type: FormatSwiss, DecimalSep: ".", ThousandSep: "'"}, "1'234.56"},
		{123456.78, NumberFormat{Type: FormatIndian, DecimalSep: ".", ThousandSep: ","}, "1,23,456.78"},
		{12345678.90, NumberFormat{Type: FormatIndian, DecimalSep: ".", ThousandSep: ","}, "1,23,45,678.90"},
		{-1234.56, NumberFormat{Type: FormatUS, DecimalSep: ".", ThousandSep: ","}, "-1,234.56"},
		{12.00, NumberFormat{Type: FormatUS, DecimalSep: ".", ThousandSep: ","}, "12.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatAmount(tt.value, tt.f); got != tt.want {
				t.Errorf("FormatAmount(%f) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
