package services

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	// parensRegexp matches parenthetical qualifiers like "(renewed)".
	parensRegexp = regexp.MustCompile(`\([^)]*\)`)
	// trailingQualRegexp matches trailing dash-delimited qualifiers like
	// " - Blue - 256GB".
	trailingQualRegexp = regexp.MustCompile(`\s+[-–—]\s+.*$`)
	// nonAlnumRegexp keeps ASCII alphanumerics, Arabic script and whitespace.
	nonAlnumRegexp = regexp.MustCompile(`[^a-z0-9\x{0600}-\x{06FF}\s]+`)
	// yearTokenRegexp matches bare two-digit model-year tokens.
	yearTokenRegexp = regexp.MustCompile(`^\d{2}$`)
)

// stopwords are filler tokens that carry no product identity.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "with": {}, "for": {},
	"new": {}, "original": {}, "genuine": {}, "official": {},
	"جديد": {}, "اصلي": {}, "أصلي": {},
}

// Normalize canonicalizes a product name so the same physical product scrapes
// to the same string across marketplaces. Idempotent.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = parensRegexp.ReplaceAllString(s, " ")
	s = trailingQualRegexp.ReplaceAllString(s, " ")
	s = nonAlnumRegexp.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, tok := range fields {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if yearTokenRegexp.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// Similarity scores how likely two raw titles refer to the same product:
// 1 − levenshtein(normalized)/maxlen, clamped to [0, 1]. Identical normalized
// strings score exactly 1.0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Matcher screens scraped candidates against a baseline name.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a Matcher with the given acceptance threshold.
func NewMatcher(threshold float64) *Matcher {
	return &Matcher{threshold: threshold}
}

// Score returns the similarity between the baseline name and a candidate title.
func (m *Matcher) Score(baselineName, candidateTitle string) float64 {
	return Similarity(baselineName, candidateTitle)
}

// Matches reports whether a candidate title clears the threshold.
func (m *Matcher) Matches(baselineName, candidateTitle string) bool {
	return m.Score(baselineName, candidateTitle) >= m.threshold
}
