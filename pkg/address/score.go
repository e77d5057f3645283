package address

import "strings"

// Candidate scoring constants. The ordering exact > prefix > substring >
// word-overlap matters more than the literal values; the length penalty
// prefers shorter, more specific options among equals.
const (
	scoreExact     = 1000.0
	scorePrefix    = 500.0
	scoreSubstring = 250.0
	scorePerWord   = 50.0
	lengthPenalty  = 0.1
)

// Score rates an autocomplete option against the typed search text.
// Deterministic by construction: the same inputs always produce the same
// score.
func Score(search, option string) float64 {
	s := strings.ToLower(strings.TrimSpace(search))
	o := strings.ToLower(strings.TrimSpace(option))
	if s == "" || o == "" {
		return 0
	}

	var score float64
	switch {
	case o == s:
		score = scoreExact
	case strings.HasPrefix(o, s):
		score = scorePrefix
	case strings.Contains(o, s):
		score = scoreSubstring
	default:
		words := strings.Fields(o)
		for _, w := range strings.Fields(s) {
			for _, ow := range words {
				if ow == w {
					score += scorePerWord
					break
				}
			}
		}
	}

	// Penalize on the trimmed length so surrounding whitespace never
	// affects the shorter-is-more-specific tie-break.
	if score > 0 {
		score -= lengthPenalty * float64(len(o))
	}
	return score
}

// Best selects the highest-scoring option for the search text and returns
// it with its index. When nothing scores above zero the first option wins:
// the field must never be left unselected once the dropdown is open.
// Returns index -1 only for an empty option list.
func Best(search string, options []string) (string, int) {
	if len(options) == 0 {
		return "", -1
	}

	bestIdx := 0
	bestScore := 0.0
	found := false
	for i, opt := range options {
		sc := Score(search, opt)
		if sc > 0 && (!found || sc > bestScore) {
			bestIdx = i
			bestScore = sc
			found = true
		}
	}

	return options[bestIdx], bestIdx
}
