// Package merchant maintains the per-user cache of resolved
// description→category assignments, including the digest-based cache
// keys and the similarity matching over them.
package merchant

import (
	"fmt"
	"regexp"
	"strings"
)

// maxKeyLength bounds cache keys for storage friendliness.
const maxKeyLength = 60

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// CacheKey derives the stable cache key for a transaction description.
// The key is a rolling hash of the FULL description, prefixed with up
// to three significant tokens for debuggability. Hashing the whole
// description — never the extracted merchant name — keeps two distinct
// transactions that share a merchant substring from colliding.
func CacheKey(description string) string {
	normalized := strings.ToLower(strings.TrimSpace(description))

	var hash uint32 = 5381
	for _, b := range []byte(normalized) {
		hash = hash*33 + uint32(b)
	}

	var prefix []string
	for _, tok := range tokenRe.FindAllString(normalized, -1) {
		if len(tok) < 3 || isNumeric(tok) {
			continue
		}
		prefix = append(prefix, tok)
		if len(prefix) == 3 {
			break
		}
	}

	key := fmt.Sprintf("%s-%08x", strings.Join(prefix, "-"), hash)
	key = strings.TrimPrefix(key, "-")
	if len(key) > maxKeyLength {
		key = key[len(key)-maxKeyLength:]
	}
	return key
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
