package merchant

import "strings"

// Similarity scores how alike two cache keys (or descriptions) are,
// in [0,1]. Exact normalized matches score 1.0; substring containment
// scores 0.8 plus a length-ratio bonus; everything else blends edit
// distance with token overlap.
func Similarity(a, b string) float64 {
	na := normalizeForMatch(a)
	nb := normalizeForMatch(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}

	minLen := float64(min(len(na), len(nb)))
	maxLen := float64(max(len(na), len(nb)))
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.8 + 0.2*(minLen/maxLen)
	}

	editScore := 1.0 - float64(levenshtein(na, nb))/maxLen
	return 0.6*editScore + 0.4*jaccard(tokenSet(na), tokenSet(nb))
}

func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
