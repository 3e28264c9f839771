// Package tagger classifies reconciled rows into business tags using an
// immutable domain.RuleSet.
package tagger

import (
	"regexp"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

type phrase struct {
	text string
	rx   *regexp.Regexp
}

type spvSynonym struct {
	norm string
	name string
}

// Tagger applies a rule set to rows. It is safe for concurrent use; all
// lookup tables are built once by New and never modified.
type Tagger struct {
	rules domain.RuleSet

	groupOf     map[string]string
	phrases     []phrase
	spvPriority []string
	spvSynonyms []spvSynonym
	spvName     map[string]string
	spvOwner    map[string]int
	orgSynonyms [][]string
}

// New prepares a Tagger for rules
func New(rules domain.RuleSet) *Tagger {
	t := &Tagger{
		rules:    rules,
		groupOf:  make(map[string]string),
		spvName:  make(map[string]string),
		spvOwner: make(map[string]int),
	}

	for _, g := range rules.TypeGroups {
		for _, typ := range g.Types {
			if _, ok := t.groupOf[typ]; !ok {
				t.groupOf[typ] = g.Name
			}
		}
	}

	for _, p := range rules.PriorityPhrases {
		t.phrases = append(t.phrases, phrase{text: p, rx: phraseRx(p)})
	}

	for i, org := range rules.Originators {
		for _, spv := range org.SPVs {
			if _, ok := t.spvOwner[spv.Name]; !ok {
				t.spvOwner[spv.Name] = i
			}
			for _, syn := range append(append([]string(nil), spv.Synonyms...), spv.Name) {
				norm := Normalize(syn)
				if norm == "" {
					continue
				}
				if _, ok := t.spvName[norm]; ok {
					continue
				}
				t.spvName[norm] = spv.Name
				t.spvSynonyms = append(t.spvSynonyms, spvSynonym{norm: norm, name: spv.Name})
			}
		}

		syns := make([]string, 0, len(org.Synonyms)+1)
		for _, syn := range append(append([]string(nil), org.Synonyms...), org.Name) {
			if norm := Normalize(syn); norm != "" {
				syns = append(syns, norm)
			}
		}
		t.orgSynonyms = append(t.orgSynonyms, syns)
	}

	for _, p := range rules.SPVPriority {
		if norm := Normalize(p); norm != "" {
			t.spvPriority = append(t.spvPriority, norm)
		}
	}

	return t
}

// TypeGroup returns the business category of a transaction type
func (t *Tagger) TypeGroup(typ string) string {
	if g, ok := t.groupOf[typ]; ok {
		return g
	}
	return domain.GroupOther
}

// Tag classifies one row
func (t *Tagger) Tag(r domain.ReportRow) domain.Tag {
	original := SearchText(r)
	norm := Normalize(original)
	typ := strings.TrimSpace(r.Type)
	group := t.TypeGroup(typ)

	if group != domain.GroupInvestmentPayments {
		if p, ok := t.priorityPhrase(original); ok {
			return domain.Tag{
				TypeGroup: group,
				Tag:       strings.ToUpper(p),
				Year:      FirstYear(original),
				Source:    domain.SourcePriorityPhrase,
			}
		}
	}

	switch group {
	case domain.GroupInvestmentPayments:
		return t.investment(group, original, norm)

	case domain.GroupInvestorPayments:
		rule, year, ok := matchSynonyms(norm, t.rules.InvestorTags)
		if !ok {
			return domain.Tag{TypeGroup: group, Year: FirstYear(original), Source: domain.SourceInvestorNoMatch}
		}
		return domain.Tag{
			TypeGroup:           group,
			Tag:                 rule.Tag,
			Investor:            rule.Tag,
			Year:                year,
			Source:              domain.SourceInvestorRules,
			YearRequiredMissing: year == "" && t.investorNeedsYear(rule.Tag),
		}

	case domain.GroupExpense:
		if rule, year, ok := matchSynonyms(norm, t.rules.ExpenseTags[typ]); ok {
			return domain.Tag{TypeGroup: group, Tag: rule.Tag, Year: year, Source: domain.SourceExpenseRules}
		}
		return domain.Tag{TypeGroup: group, Tag: typ, Year: FirstYear(original), Source: domain.SourceExpenseFallbackType}
	}

	return domain.Tag{TypeGroup: group, Tag: typ, Year: FirstYear(original), Source: domain.SourceTypePassthrough}
}

// TagAll classifies every row, keeping order
func (t *Tagger) TagAll(rows []domain.ReportRow) []domain.TaggedRow {
	out := make([]domain.TaggedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.TaggedRow{ReportRow: r, Tag: t.Tag(r)})
	}
	return out
}

func (t *Tagger) priorityPhrase(original string) (string, bool) {
	for _, p := range t.phrases {
		if p.rx.MatchString(original) {
			return p.text, true
		}
	}
	return "", false
}

func (t *Tagger) investment(group, original, norm string) domain.Tag {
	spv := ""
	for _, p := range t.spvPriority {
		if containsWord(norm, p) {
			spv = p
			if name, ok := t.spvName[p]; ok {
				spv = name
			}
			break
		}
	}
	if spv == "" {
		for _, s := range t.spvSynonyms {
			if containsWord(norm, s.norm) {
				spv = s.name
				break
			}
		}
	}

	owner := -1
	if spv != "" {
		if i, ok := t.spvOwner[spv]; ok {
			owner = i
		}
	} else {
	scan:
		for i, syns := range t.orgSynonyms {
			for _, syn := range syns {
				if containsWord(norm, syn) {
					owner = i
					break scan
				}
			}
		}
	}

	year := FirstYear(original)

	if spv == "" && owner < 0 {
		return domain.Tag{TypeGroup: group, Year: year, Source: domain.SourceInvestmentNoMatch}
	}

	tag := domain.Tag{TypeGroup: group, SPV: spv, Year: year, Source: domain.SourceInvestment}
	if owner >= 0 {
		org := t.rules.Originators[owner]
		tag.Originator = org.Name
		if spv != "" && year == "" {
			for _, s := range org.SPVs {
				if s.Name == spv {
					tag.YearRequiredMissing = s.YearsRequired
					break
				}
			}
		}
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{tag.Originator, tag.SPV, tag.Year} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	tag.Tag = strings.Join(parts, " / ")

	return tag
}

func (t *Tagger) investorNeedsYear(tag string) bool {
	for _, r := range t.rules.InvestorTags {
		if r.Tag == tag && r.YearsRequired {
			return true
		}
	}
	return false
}

// matchSynonyms returns the first rule, in priority order, with a synonym
// present in norm. Rules requiring a year are passed over when norm has none.
func matchSynonyms(norm string, rules []domain.TagRule) (domain.TagRule, string, bool) {
	year := FirstYear(norm)
	for _, r := range rules {
		for _, syn := range r.Synonyms {
			if !containsWord(norm, Normalize(syn)) {
				continue
			}
			if r.YearsRequired && year == "" {
				continue
			}
			return r, year, true
		}
	}
	return domain.TagRule{}, "", false
}
