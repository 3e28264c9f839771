package tagger

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// Fuzzy match review statuses
const (
	StatusAutoApproved = "Auto-Approved"
	StatusNeedsReview  = "Needs Review"
	StatusNoMatch      = "No Match Found"
)

// FuzzyTypes are the ledger types scored by the fuzzy SPV matcher
var FuzzyTypes = []string{"Rent", "Investment", "Repayment"}

// FuzzyOptions tunes the fuzzy SPV matcher. Scores are on a 0-100 scale.
type FuzzyOptions struct {
	Cutoff      float64 // weaker matches are discarded
	Retry       float64 // Description2 is tried when Detail scores below this
	ReviewBelow float64 // matches scoring below this need review
}

// DefaultFuzzyOptions returns the standard thresholds
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{Cutoff: 60, Retry: 90, ReviewBelow: 85}
}

// SPVMatch is the fuzzy SPV classification of one row
type SPVMatch struct {
	Row        int // index into the scored rows
	MatchID    string
	SPV        string
	Originator string
	Score      float64
	Status     string
}

// MatchSPVs scores the Detail text of every investment-like row against the
// SPV names in rules, then shares the best SPV of each match group with its
// siblings. Results are in input order and cover only FuzzyTypes rows.
func MatchSPVs(rows []domain.ReportRow, rules domain.RuleSet, opts FuzzyOptions) []SPVMatch {
	choices := make([]string, 0)
	owner := make(map[string]string)
	for _, org := range rules.Originators {
		for _, spv := range org.SPVs {
			if _, ok := owner[spv.Name]; ok {
				continue
			}
			owner[spv.Name] = org.Name
			choices = append(choices, spv.Name)
		}
	}

	matches := make([]SPVMatch, 0)
	for i, r := range rows {
		if !isFuzzyType(r.Type) {
			continue
		}

		m := SPVMatch{Row: i, MatchID: r.MatchID()}
		m.SPV, m.Score = bestMatch(r.Detail, choices, opts.Cutoff)
		if m.Score < opts.Retry {
			if spv, score := bestMatch(r.Description2, choices, opts.Cutoff); score > m.Score {
				m.SPV, m.Score = spv, score
			}
		}
		matches = append(matches, m)
	}

	fillGroups(matches)

	for i := range matches {
		m := &matches[i]
		m.Originator = owner[m.SPV]
		switch {
		case m.SPV == "":
			m.Status = StatusNoMatch
		case m.Score < opts.ReviewBelow:
			m.Status = StatusNeedsReview
		default:
			m.Status = StatusAutoApproved
		}
	}

	return matches
}

// fillGroups gives every row of a match group the SPV of its highest
// scoring sibling. Rows without a match id are left alone.
func fillGroups(matches []SPVMatch) {
	order := make([]int, 0, len(matches))
	for i := range matches {
		if matches[i].MatchID != "" {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := matches[order[a]], matches[order[b]]
		if ma.MatchID != mb.MatchID {
			return ma.MatchID < mb.MatchID
		}
		return ma.Score > mb.Score
	})

	for start := 0; start < len(order); {
		end := start
		for end < len(order) && matches[order[end]].MatchID == matches[order[start]].MatchID {
			end++
		}

		group := order[start:end]
		last := ""
		for _, i := range group {
			if matches[i].SPV == "" {
				matches[i].SPV = last
			} else {
				last = matches[i].SPV
			}
		}
		next := ""
		for k := len(group) - 1; k >= 0; k-- {
			i := group[k]
			if matches[i].SPV == "" {
				matches[i].SPV = next
			} else {
				next = matches[i].SPV
			}
		}

		start = end
	}
}

// bestMatch returns the first choice with the highest partial ratio against
// text, or "" when none reaches cutoff
func bestMatch(text string, choices []string, cutoff float64) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return "", 0
	}

	best, score := "", 0.0
	for _, c := range choices {
		if s := PartialRatio(text, c); s >= cutoff && s > score {
			best, score = c, s
		}
	}
	return best, score
}

// PartialRatio scores how well the shorter string fits inside the longer
// one: the best Levenshtein ratio over every equal-length window, 0-100.
// Comparison ignores case.
func PartialRatio(a, b string) float64 {
	short, long := []rune(strings.ToUpper(a)), []rune(strings.ToUpper(b))
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := levenshtein.RatioForStrings(short, long[i:i+len(short)], levenshtein.DefaultOptions)
		if r > best {
			best = r
		}
		if best == 1 {
			break
		}
	}
	return best * 100
}

func isFuzzyType(typ string) bool {
	typ = strings.TrimSpace(typ)
	for _, t := range FuzzyTypes {
		if t == typ {
			return true
		}
	}
	return false
}
