// internal/fill/scorer.go
package fill

import (
	"strings"
	"unicode"
)

// scorer rates how well a dropdown option answers a wanted value. The
// weights are tuned against real applicant-tracking forms: exact matches
// dominate, whole-word coverage beats substring overlap, and synonym
// groups bridge the gap between profile phrasing and form phrasing
// ("Male" vs "M", "Yes" vs "I am authorized"). The acceptance threshold
// lives in FillerConfig, not here.
type scorer struct {
	threshold int
	groups    map[string]int
}

func newScorer(threshold int, synonyms [][]string) *scorer {
	if threshold <= 0 {
		threshold = 30
	}
	groups := make(map[string]int)
	for id, group := range synonyms {
		for _, phrase := range group {
			groups[foldText(phrase)] = id
		}
	}
	return &scorer{threshold: threshold, groups: groups}
}

func (s *scorer) qualifies(score int) bool {
	return score >= s.threshold
}

// score rates option text against the wanted value on a 0-100 scale.
func (s *scorer) score(want, option string) int {
	wn, on := foldText(want), foldText(option)
	if wn == "" || on == "" {
		return 0
	}
	if wn == on {
		return 100
	}

	score := 0
	wantWords := strings.Fields(wn)
	optionWords := make(map[string]bool)
	for _, w := range strings.Fields(on) {
		optionWords[w] = true
	}
	matched := 0
	for _, w := range wantWords {
		if optionWords[w] {
			matched++
		}
	}
	switch {
	case matched == len(wantWords):
		score = 70
	case matched > 0:
		score = 40 * matched / len(wantWords)
	}
	if score < 55 && strings.Contains(on, wn) {
		score = 55
	}
	if g, ok := s.groups[wn]; ok {
		if g2, ok2 := s.groups[on]; ok2 && g == g2 {
			score += 50
		}
	}
	// A long descriptive option matching a short value is usually an
	// accident, not an answer.
	if len(on) > 4*len(wn) {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// foldText lowercases, drops punctuation, and collapses whitespace so
// "Non-Binary", "non binary" and "non-binary." all compare equal.
// Hyphens, slashes and underscores split words; other punctuation
// vanishes, which folds "B.S." to "bs".
func foldText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DefaultSynonymGroups is the stock table of phrases that answer each
// other across job-application forms. Phrases in one group score as
// near-matches of each other regardless of word overlap. Callers wanting
// site-specific vocabulary can build a Filler around an extended copy.
func DefaultSynonymGroups() [][]string {
	return [][]string{
		{"yes", "y", "yep", "true", "i do", "i am", "i have"},
		{"no", "n", "nope", "false", "i do not", "i am not", "i have not"},
		{"male", "m", "man"},
		{"female", "f", "woman"},
		{"non binary", "nonbinary", "genderqueer", "gender non conforming"},
		{
			"prefer not to say", "prefer not to answer", "i prefer not to answer",
			"prefer not to disclose", "decline to self identify", "decline to state",
			"i dont wish to answer",
		},
		{
			"authorized to work", "legally authorized", "us citizen", "citizen",
			"permanent resident", "green card holder",
		},
		{
			"require sponsorship", "will require sponsorship", "need sponsorship",
			"not authorized", "visa sponsorship required",
		},
		{"bachelors", "bachelor", "bachelors degree", "bs", "ba", "undergraduate"},
		{"masters", "master", "masters degree", "ms", "ma", "graduate degree"},
		{"phd", "doctorate", "doctoral", "doctor of philosophy"},
		{"high school", "ged", "secondary school", "high school diploma"},
		{"associate", "associates", "associates degree", "aa", "as"},
	}
}
