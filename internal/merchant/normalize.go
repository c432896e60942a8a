package merchant

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Patterns for cleaning merchant display names.
	prefixPattern = regexp.MustCompile(`(?i)^(pos |eftpos |visa |mastercard |amex |paypal \*|sepa |lastschrift )`)
	suffixPattern = regexp.MustCompile(`(?i)\s+(pty|ltd|inc|corp|llc|gmbh|ag|bv|sarl)\.?$`)
	longNumbers   = regexp.MustCompile(`\d{6,}`)
	specialChars  = regexp.MustCompile(`[*#]+`)
)

// Normalize cleans a raw description into a presentable merchant name:
// card-scheme prefixes, legal-form suffixes, reference numbers and
// filler characters removed, words title-cased.
func Normalize(raw string) string {
	cleaned := prefixPattern.ReplaceAllString(raw, "")
	cleaned = suffixPattern.ReplaceAllString(cleaned, "")
	cleaned = longNumbers.ReplaceAllString(cleaned, "")
	cleaned = specialChars.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	caser := cases.Title(language.English)
	words := strings.Fields(cleaned)
	for i, word := range words {
		if len(word) > 2 {
			words[i] = caser.String(strings.ToLower(word))
		} else {
			words[i] = strings.ToUpper(word)
		}
	}

	result := strings.Join(words, " ")
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}
