// Package format contains the locale heuristics for monetary amounts
// and statement dates found in bank-export files.
package format

import (
	"regexp"
	"strconv"
	"strings"
)

// NumberFormatType labels the separator convention of a numeric string.
type NumberFormatType string

const (
	FormatEuropean NumberFormatType = "european"
	FormatUS       NumberFormatType = "us"
	FormatSwiss    NumberFormatType = "swiss"
	FormatIndian   NumberFormatType = "indian"
	FormatUnknown  NumberFormatType = "unknown"
)

// NumberFormat describes a detected numeric convention.
type NumberFormat struct {
	Type        NumberFormatType
	DecimalSep  string
	ThousandSep string
	Confidence  float64
}

var (
	usThousandsRe       = regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)
	europeanThousandsRe = regexp.MustCompile(`^\d{1,3}(\.\d{3})*$`)
	indianGroupingRe    = regexp.MustCompile(`^\d{1,2}(,\d{2})*,\d{3}$`)
	numericRunRe        = regexp.MustCompile(`[\d.,' ]+`)
	currencyGlyphRe     = regexp.MustCompile(`[^\d.,'()\- ]`)
	nonNumericRe        = regexp.MustCompile(`[^0-9.]`)
)

// DetectNumberFormat infers the separator convention of a raw numeric
// string. The separator that appears last and is followed by at most
// three digits is the decimal candidate; the remaining rules break
// ties between regional conventions.
func DetectNumberFormat(s string) NumberFormat {
	num := extractNumericRun(s)

	lastComma := strings.LastIndex(num, ",")
	lastPeriod := strings.LastIndex(num, ".")
	commas := strings.Count(num, ",")
	periods := strings.Count(num, ".")
	apostrophes := strings.Count(num, "'")

	digitTail := func(idx int) int {
		tail := num[idx+1:]
		n := 0
		for _, r := range tail {
			if r < '0' || r > '9' {
				break
			}
			n++
		}
		return n
	}

	switch {
	case commas > 0 && periods > 0 && lastComma > lastPeriod:
		if tail := digitTail(lastComma); tail <= 3 {
			conf := 0.9
			if commas == 1 && tail == 2 {
				conf = 0.95
			}
			return NumberFormat{FormatEuropean, ",", ".", conf}
		}

	case commas > 0 && periods > 0 && lastPeriod > lastComma:
		if tail := digitTail(lastPeriod); tail <= 3 {
			intPart := num[:lastPeriod]
			if commas > 1 && periods == 1 && indianGroupingRe.MatchString(intPart) {
				return NumberFormat{FormatIndian, ".", ",", 0.85}
			}
			conf := 0.9
			if commas == 1 && tail == 2 {
				conf = 0.95
			}
			return NumberFormat{FormatUS, ".", ",", conf}
		}

	case apostrophes > 0 && periods > 0:
		return NumberFormat{FormatSwiss, ".", "'", 0.85}

	case commas > 0 && periods == 0:
		if usThousandsRe.MatchString(num) {
			return NumberFormat{FormatUS, ".", ",", 0.7}
		}
		if tail := digitTail(lastComma); tail <= 2 {
			conf := 0.9
			if commas == 1 && tail == 2 {
				conf = 0.95
			}
			return NumberFormat{FormatEuropean, ",", ".", conf}
		}

	case periods > 0 && commas == 0:
		if europeanThousandsRe.MatchString(num) {
			return NumberFormat{FormatEuropean, ",", ".", 0.7}
		}
		return NumberFormat{FormatUS, ".", ",", 0.8}
	}

	return NumberFormat{FormatUnknown, ".", ",", 0}
}

// extractNumericRun returns the longest run of digits and separator
// characters, so currency glyphs and sign markers do not skew the
// separator counts.
func extractNumericRun(s string) string {
	runs := numericRunRe.FindAllString(s, -1)
	best := ""
	for _, r := range runs {
		r = strings.Trim(r, " ")
		if len(r) > len(best) {
			best = r
		}
	}
	return best
}

// ParseAmount parses a raw monetary string under the given format.
// It strips currency glyphs, resolves negative markers (leading or
// trailing minus, parenthesization), removes the thousand separator
// and normalizes the decimal separator. ok is false when no numeric
// value remains.
func ParseAmount(s string, f NumberFormat) (float64, bool) {
	trimmed := strings.TrimSpace(currencyGlyphRe.ReplaceAllString(s, ""))
	if trimmed == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		negative = true
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	trimmed = strings.TrimSpace(trimmed)
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	if strings.HasSuffix(trimmed, "-") {
		negative = true
		trimmed = trimmed[:len(trimmed)-1]
	}

	if f.ThousandSep != "" {
		trimmed = strings.ReplaceAll(trimmed, f.ThousandSep, "")
	}
	if f.DecimalSep != "" && f.DecimalSep != "." {
		trimmed = strings.ReplaceAll(trimmed, f.DecimalSep, ".")
	}
	trimmed = nonNumericRe.ReplaceAllString(trimmed, "")
	if trimmed == "" || trimmed == "." {
		return 0, false
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}

// Parse detects the format of s and parses it in one step.
func Parse(s string) (float64, NumberFormat, bool) {
	f := DetectNumberFormat(s)
	v, ok := ParseAmount(s, f)
	return v, f, ok
}

// FormatAmount renders v under the given format with two decimal
// places, including Indian-style grouping (rightmost three digits,
// then groups of two) when the format is indian.
func FormatAmount(v float64, f NumberFormat) string {
	negative := v < 0
	if negative {
		v = -v
	}

	fixed := strconv.FormatFloat(v, 'f', 2, 64)
	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var grouped string
	if f.Type == FormatIndian {
		grouped = groupIndian(intPart, f.ThousandSep)
	} else {
		grouped = groupThousands(intPart, f.ThousandSep)
	}

	out := grouped + f.DecimalSep + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	first := len(digits) % 3
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func groupIndian(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	groups = append(groups, tail)
	return strings.Join(groups, sep)
}
