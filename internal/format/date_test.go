package format

import "testing"

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		layout string
		want   string
	}{
		{"12/03/2024", "DD/MM/YYYY", "2024-03-12"},
		{"03/12/2024", "MM/DD/YYYY", "2024-12-03"},
		{"2024-03-12", "YYYY-MM-DD", "2024-03-12"},
		{"12-03-2024", "DD-MM-YYYY", "2024-03-12"},
		{"03-12-2024", "MM-DD-YYYY", "2024-12-03"},
		{"1/3/2024", "DD/MM/YYYY", "2024-03-01"},
		{"9/1/2024", "MM/DD/YYYY", "2024-09-01"},

		// Unknown layout or malformed input passes through unchanged.
		{"12.03.2024", "DD.MM.YYYY", "12.03.2024"},
		{"12/03", "DD/MM/YYYY", "12/03"},
		{"not a date", "DD/MM/YYYY", "not a date"},
		{"", "DD/MM/YYYY", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input+"_"+tt.layout, func(t *testing.T) {
			if got := ParseDate(tt.input, tt.layout); got != tt.want {
				t.Errorf("ParseDate(%q, %q) = %q, want %q", tt.input, tt.layout, got, tt.want)
			}
		})
	}
}
