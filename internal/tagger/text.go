package tagger

import (
	"regexp"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

var (
	nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)
	yearRx   = regexp.MustCompile(`\b(20\d{2})\b`)
)

// SearchText joins the free-text fields of a row the way they are searched
func SearchText(r domain.ReportRow) string {
	return strings.TrimSpace(strings.Join([]string{r.Description1B, r.Description2, r.Detail}, " | "))
}

// Normalize upper-cases s and collapses every non-alphanumeric run to one space
func Normalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToUpper(s), " "))
}

// Tokenize splits normalized text into words
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}

// NGrams returns every run of between lo and hi consecutive tokens
func NGrams(tokens []string, lo, hi int) []string {
	grams := make([]string, 0)
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// FirstYear returns the first 20xx token in text, or ""
func FirstYear(text string) string {
	m := yearRx.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// containsWord reports whether phrase occurs in text as whole words. Both
// must already be normalized, so words are separated by single spaces.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// phraseRx matches phrase as a whole word, ignoring case
func phraseRx(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}
