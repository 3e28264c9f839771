// Package aggregate rolls tagged report rows up by match group, derives a
// reconciliation status per row and selects the rows that need review.
package aggregate

import (
	"regexp"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
)

// Row statuses
const (
	StatusUnlinked             = "UNLINKED_NO_MATCH_ID"
	StatusInvalidAmounts       = "INVALID_AMOUNTS"
	StatusMatched              = "MATCHED"
	StatusMismatch             = "MISMATCH"
	StatusMatchedWithSplitFees = "MATCHED_WITH_SPLIT_FEES"
)

var feeLike = regexp.MustCompile(`(?i)\b(FEES?|CHARGES?|EXPENSES?)\b`)

// Options holds the aggregation thresholds
type Options struct {
	Tolerance      decimal.Decimal
	MaxDateLagDays int
}

// DefaultOptions returns a one cent tolerance and a five day lag limit
func DefaultOptions() Options {
	return Options{
		Tolerance:      decimal.New(1, -2),
		MaxDateLagDays: 5,
	}
}

// GroupTotals summarises both sides of one match group. Rows without a
// match id are totalled together under an empty MatchID.
type GroupTotals struct {
	MatchID     string
	BankTotal   decimal.Decimal
	LedgerTotal decimal.Decimal
	BankDateMin civil.Date
	BankDateMax civil.Date
	CashDateMin civil.Date
	CashDateMax civil.Date
	BankDesc1B  string
	BankDesc2   string
	Diff        decimal.Decimal // bank minus ledger, rounded to cents
	DateLag     int             // days between the earliest dates, -1 when unknown
	Valid       bool            // every amount in the group was readable
}

// DetailedRow is a tagged row with its group totals and status
type DetailedRow struct {
	domain.TaggedRow
	Group  *GroupTotals
	Status string
}

// Result is the aggregation output for one account
type Result struct {
	Account     string
	Detailed    []DetailedRow
	Exceptions  []DetailedRow
	Summary     []SummaryRow
	Suggestions Suggestions
	Mislabels   []Mislabel
}

// Aggregate groups rows by match id and builds every review output
func Aggregate(account string, rows []domain.TaggedRow, opts Options) Result {
	groups := totals(rows)

	detailed := make([]DetailedRow, 0, len(rows))
	for _, r := range rows {
		g := groups[r.MatchID()]
		detailed = append(detailed, DetailedRow{
			TaggedRow: r,
			Group:     g,
			Status:    status(r, g, opts.Tolerance),
		})
	}

	exceptions := make([]DetailedRow, 0)
	for _, d := range detailed {
		if isException(d, opts) {
			exceptions = append(exceptions, d)
		}
	}

	return Result{
		Account:     account,
		Detailed:    detailed,
		Exceptions:  exceptions,
		Summary:     Summarize(rows),
		Suggestions: Suggest(rows),
		Mislabels:   AuditMislabels(detailed),
	}
}

func totals(rows []domain.TaggedRow) map[string]*GroupTotals {
	groups := make(map[string]*GroupTotals)

	for _, r := range rows {
		id := r.MatchID()
		g, ok := groups[id]
		if !ok {
			g = &GroupTotals{MatchID: id, Valid: true}
			groups[id] = g
		}

		if !r.AmountsValid {
			g.Valid = false
		}
		if r.HasBank {
			g.BankTotal = g.BankTotal.Add(r.BankAmount())
			g.BankDateMin, g.BankDateMax = widen(g.BankDateMin, g.BankDateMax, r.BankDate)
		}
		if r.HasLedger {
			g.LedgerTotal = g.LedgerTotal.Add(r.Amount)
			g.CashDateMin, g.CashDateMax = widen(g.CashDateMin, g.CashDateMax, r.CashDate)
		}
		if g.BankDesc1B == "" {
			g.BankDesc1B = r.Description1B
		}
		if g.BankDesc2 == "" {
			g.BankDesc2 = r.Description2
		}
	}

	for _, g := range groups {
		g.Diff = normalize.Round(g.BankTotal.Sub(g.LedgerTotal))
		g.DateLag = -1
		if g.BankDateMin.IsValid() && g.CashDateMin.IsValid() {
			g.DateLag = abs(g.BankDateMin.DaysSince(g.CashDateMin))
		}
	}

	return groups
}

func widen(lo, hi, d civil.Date) (civil.Date, civil.Date) {
	if !d.IsValid() {
		return lo, hi
	}
	if !lo.IsValid() || d.Before(lo) {
		lo = d
	}
	if !hi.IsValid() || d.After(hi) {
		hi = d
	}
	return lo, hi
}

func status(r domain.TaggedRow, g *GroupTotals, tolerance decimal.Decimal) string {
	if r.MatchID() == "" {
		return StatusUnlinked
	}
	if !g.Valid {
		return StatusInvalidAmounts
	}
	if g.Diff.Abs().LessThanOrEqual(tolerance) {
		return StatusMatched
	}
	if isFeeLike(r.ReportRow) {
		return StatusMatchedWithSplitFees
	}
	return StatusMismatch
}

func isFeeLike(r domain.ReportRow) bool {
	return feeLike.MatchString(r.Detail) ||
		feeLike.MatchString(r.Description2) ||
		feeLike.MatchString(r.Description1B)
}

func isException(d DetailedRow, opts Options) bool {
	t := d.Tag
	investment := t.TypeGroup == domain.GroupInvestmentPayments

	switch {
	case t.Tag == "" && !investment:
		return true
	case investment && t.Originator == "" && t.SPV == "":
		return true
	case t.YearRequiredMissing:
		return true
	case d.Status == StatusUnlinked || d.Status == StatusInvalidAmounts || d.Status == StatusMismatch:
		return true
	case d.Group.DateLag > opts.MaxDateLagDays:
		return true
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
