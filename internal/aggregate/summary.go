package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// SummaryRow totals ledger amounts for one (Type, Type_Group, Tag, Tag_Year) key
type SummaryRow struct {
	Type      string
	TypeGroup string
	Tag       string
	Year      string
	Total     decimal.Decimal
	Rows      int
}

type summaryKey struct {
	typ, group, tag, year string
}

// Summarize totals ledger amounts by type, group, tag and year. Rows are
// ordered by group, type, tag then year with blanks last.
func Summarize(rows []domain.TaggedRow) []SummaryRow {
	index := make(map[summaryKey]int)
	out := make([]SummaryRow, 0)

	for _, r := range rows {
		k := summaryKey{r.Type, r.Tag.TypeGroup, r.Tag.Tag, r.Tag.Year}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, SummaryRow{Type: k.typ, TypeGroup: k.group, Tag: k.tag, Year: k.year})
		}

		if r.HasLedger {
			out[i].Total = out[i].Total.Add(r.Amount)
		}
		out[i].Rows++
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for _, pair := range [][2]string{
			{a.TypeGroup, b.TypeGroup},
			{a.Type, b.Type},
			{a.Tag, b.Tag},
			{a.Year, b.Year},
		} {
			if pair[0] != pair[1] {
				return blanksLast(pair[0], pair[1])
			}
		}
		return false
	})

	return out
}

func blanksLast(a, b string) bool {
	if a == "" || b == "" {
		return b == ""
	}
	return a < b
}
