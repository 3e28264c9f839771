package aggregate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/tagger"
)

const maxSuggestions = 100

// Count is a term with its number of occurrences
type Count struct {
	Term  string
	Count int
}

// Suggestions lists the most frequent phrases and words in rows the rules
// could not classify, as candidates for new synonyms
type Suggestions struct {
	NGrams []Count
	Tokens []Count
}

// Len is the number of table rows needed to show both lists side by side
func (s Suggestions) Len() int {
	if len(s.NGrams) > len(s.Tokens) {
		return len(s.NGrams)
	}
	return len(s.Tokens)
}

// Suggest counts words of at least three letters and their 2 and 3 word
// runs over untagged rows and investment rows with no originator or SPV.
func Suggest(rows []domain.TaggedRow) Suggestions {
	tokens := newCounter()
	grams := newCounter()

	for _, r := range rows {
		if !needsRule(r.Tag) {
			continue
		}

		text := strings.Join([]string{r.Description1B, r.Description2, r.Detail}, " ")
		words := make([]string, 0)
		for _, tok := range tagger.Tokenize(text) {
			if len(tok) >= 3 && !isDigits(tok) {
				words = append(words, tok)
			}
		}

		for _, w := range words {
			tokens.add(w)
		}
		for _, g := range tagger.NGrams(words, 2, 3) {
			grams.add(g)
		}
	}

	return Suggestions{
		NGrams: grams.top(maxSuggestions),
		Tokens: tokens.top(maxSuggestions),
	}
}

func needsRule(t domain.Tag) bool {
	investment := t.TypeGroup == domain.GroupInvestmentPayments
	return (t.Tag == "" && !investment) || (investment && t.Originator == "" && t.SPV == "")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// counter counts terms, remembering first-seen order to break ties
type counter struct {
	index  map[string]int
	counts []Count
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(term string) {
	i, ok := c.index[term]
	if !ok {
		i = len(c.counts)
		c.index[term] = i
		c.counts = append(c.counts, Count{Term: term})
	}
	c.counts[i].Count++
}

func (c *counter) top(n int) []Count {
	out := append([]Count(nil), c.counts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
