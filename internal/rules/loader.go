// Package rules loads the ops-maintained tagging tables from flat CSV files
// into an immutable domain.RuleSet.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// Rule table file names inside the rules directory
const (
	OriginatorsFile     = "investment_originators.csv"
	SPVsFile            = "investment_spvs.csv"
	PriorityPhrasesFile = "priority_phrases.csv"
	InvestorTagsFile    = "investor_tags.csv"
	ExpenseTagsFile     = "expense_tags.csv"
)

const defaultPriority = 100

// Load reads every rule table in dir. A missing table is treated as empty.
// When typeGroups is empty the standard grouping is used.
func Load(dir string, typeGroups []domain.TypeGroup) (domain.RuleSet, error) {
	if len(typeGroups) == 0 {
		typeGroups = domain.DefaultTypeGroups()
	}

	rs := domain.RuleSet{
		TypeGroups:  typeGroups,
		ExpenseTags: make(map[string][]domain.TagRule),
	}

	phrases, err := readTable(filepath.Join(dir, PriorityPhrasesFile))
	if err != nil {
		return rs, err
	}
	rs.PriorityPhrases = priorityPhrases(phrases)

	originators, err := readTable(filepath.Join(dir, OriginatorsFile))
	if err != nil {
		return rs, err
	}
	spvs, err := readTable(filepath.Join(dir, SPVsFile))
	if err != nil {
		return rs, err
	}
	rs.Originators, rs.SPVPriority = investment(originators, spvs)

	investors, err := readTable(filepath.Join(dir, InvestorTagsFile))
	if err != nil {
		return rs, err
	}
	rs.InvestorTags = tagRules(investors)

	expenses, err := readTable(filepath.Join(dir, ExpenseTagsFile))
	if err != nil {
		return rs, err
	}
	for _, r := range expenses {
		typ := strings.TrimSpace(r["type"])
		if typ == "" {
			continue
		}
		if rule, ok := tagRule(r); ok {
			rs.ExpenseTags[typ] = append(rs.ExpenseTags[typ], rule)
		}
	}
	for typ := range rs.ExpenseTags {
		byPriority(rs.ExpenseTags[typ])
	}

	return rs, nil
}

func priorityPhrases(rows []map[string]string) []string {
	sorted := append([]map[string]string(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return toInt(sorted[i]["priority"], defaultPriority) < toInt(sorted[j]["priority"], defaultPriority)
	})

	out := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if p := strings.TrimSpace(r["phrase"]); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type spvEntry struct {
	synonyms      []string
	yearsRequired bool
}

type originatorEntry struct {
	synonyms []string
	spvs     map[string]*spvEntry
	spvOrder []string
}

type priorityPhrase struct {
	phrase   string
	priority int
}

// investment builds the originator/SPV hierarchy and the global SPV
// priority list, canonical names and synonyms sharing their row's priority.
func investment(originatorRows, spvRows []map[string]string) ([]domain.OriginatorRule, []string) {
	entries := make(map[string]*originatorEntry)
	order := make([]string, 0)

	get := func(name string) *originatorEntry {
		e, ok := entries[name]
		if !ok {
			e = &originatorEntry{spvs: make(map[string]*spvEntry)}
			entries[name] = e
			order = append(order, name)
		}
		return e
	}

	for _, r := range originatorRows {
		org := strings.TrimSpace(r["originator"])
		if org == "" {
			continue
		}
		e := get(org)
		e.synonyms = append(e.synonyms, split(r["originator_synonyms"])...)
	}

	pairs := make([]priorityPhrase, 0)
	for _, r := range spvRows {
		org := strings.TrimSpace(r["originator"])
		spv := strings.TrimSpace(r["spv"])
		if org == "" || spv == "" {
			continue
		}

		e := get(org)
		s, ok := e.spvs[spv]
		if !ok {
			s = &spvEntry{}
			e.spvs[spv] = s
			e.spvOrder = append(e.spvOrder, spv)
		}

		syns := split(r["spv_synonyms"])
		s.synonyms = append(s.synonyms, syns...)
		s.yearsRequired = toBool(r["years_required"])

		prio := toInt(r["priority"], defaultPriority)
		pairs = append(pairs, priorityPhrase{spv, prio})
		for _, syn := range syns {
			pairs = append(pairs, priorityPhrase{syn, prio})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].priority < pairs[j].priority
	})

	seen := make(map[string]bool)
	spvPriority := make([]string, 0, len(pairs))
	for _, p := range pairs {
		key := strings.ToUpper(strings.TrimSpace(p.phrase))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		spvPriority = append(spvPriority, p.phrase)
	}

	originators := make([]domain.OriginatorRule, 0, len(order))
	for _, name := range order {
		e := entries[name]
		rule := domain.OriginatorRule{
			Name:     name,
			Synonyms: uniqueSorted(e.synonyms),
		}
		for _, spv := range e.spvOrder {
			s := e.spvs[spv]
			rule.SPVs = append(rule.SPVs, domain.SPVRule{
				Name:          spv,
				Synonyms:      uniqueSorted(s.synonyms),
				YearsRequired: s.yearsRequired,
			})
		}
		originators = append(originators, rule)
	}

	return originators, spvPriority
}

func tagRules(rows []map[string]string) []domain.TagRule {
	out := make([]domain.TagRule, 0, len(rows))
	for _, r := range rows {
		if rule, ok := tagRule(r); ok {
			out = append(out, rule)
		}
	}
	byPriority(out)
	return out
}

func tagRule(r map[string]string) (domain.TagRule, bool) {
	tag := strings.TrimSpace(r["tag"])
	if tag == "" {
		return domain.TagRule{}, false
	}

	return domain.TagRule{
		Tag:           tag,
		Synonyms:      split(r["synonyms"]),
		Priority:      toInt(r["priority"], defaultPriority),
		YearsRequired: toBool(r["years_required"]),
	}, true
}

func byPriority(rules []domain.TagRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}

// readTable reads a CSV file into one map per row keyed by header name
func readTable(path string) ([]map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	reader := fileutil.NewCSVReader(path)
	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading rule table %s: %w", filepath.Base(path), err)
	}

	rows := make([]map[string]string, 0)
	err = reader.ReadAndProcessByRow(func(rec []string) error {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[strings.TrimSpace(name)] = rec[i]
			}
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading rule table %s: %w", filepath.Base(path), err)
	}

	return rows, nil
}

// split breaks a "|" separated cell into trimmed, non-empty values
func split(cell string) []string {
	out := make([]string, 0)
	for _, s := range strings.Split(cell, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toBool(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

func toInt(cell string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return def
	}
	return n
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
