// Package dedup prevents re-insertion of already-known creators through
// exact, fuzzy and cross-platform matching.
package dedup

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Affixes commonly bolted onto handles that carry no identity signal.
// "thejohnsmith", "johnsmith_official" and "johnsmithtv" should all
// collapse to "johnsmith" before comparison.
var strippedAffixes = []string{"the", "official", "real", "tv", "hq"}

// normalizeUsername lowercases, removes every non-alphanumeric rune and
// strips known prefixes/suffixes.
func normalizeUsername(username string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()

	for _, affix := range strippedAffixes {
		// Only strip when something meaningful remains; "official" alone
		// must not normalize to the empty string.
		if strings.HasPrefix(s, affix) && len(s) > len(affix)+2 {
			s = s[len(affix):]
		}
		if strings.HasSuffix(s, affix) && len(s) > len(affix)+2 {
			s = s[:len(s)-len(affix)]
		}
	}
	return s
}

// Similarity returns 1 − editDistance/maxLen over the normalized forms of
// two usernames. It is symmetric and lands in [0,1]; identical normalized
// handles score 1.
func Similarity(a, b string) float64 {
	na, nb := normalizeUsername(a), normalizeUsername(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein.Distance(na, nb, levenshtein.NewParams())
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	return 1 - float64(dist)/float64(maxLen)
}
