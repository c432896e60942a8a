package format

import (
	"fmt"
	"strings"
)

// dateLayouts maps a supported layout token to its separator and the
// positions of day, month and year in the split string.
var dateLayouts = map[string]struct {
	sep              string
	day, month, year int
}{
	"DD/MM/YYYY": {"/", 0, 1, 2},
	"MM/DD/YYYY": {"/", 1, 0, 2},
	"YYYY-MM-DD": {"-", 2, 1, 0},
	"DD-MM-YYYY": {"-", 0, 1, 2},
	"MM-DD-YYYY": {"-", 1, 0, 2},
}

// ParseDate converts a date string in the given layout to ISO
// YYYY-MM-DD, zero-padding day and month. An unknown layout or a
// string that does not split into three parts is returned unchanged;
// validation happens downstream.
func ParseDate(s, layout string) string {
	spec, ok := dateLayouts[strings.ToUpper(strings.TrimSpace(layout))]
	if !ok {
		return s
	}

	parts := strings.Split(strings.TrimSpace(s), spec.sep)
	if len(parts) != 3 {
		return s
	}

	day := strings.TrimSpace(parts[spec.day])
	month := strings.TrimSpace(parts[spec.month])
	year := strings.TrimSpace(parts[spec.year])
	if day == "" || month == "" || year == "" {
		return s
	}
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}

	return fmt.Sprintf("%s-%s-%s", year, month, day)
}
