package domain

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// Strategy identifies which step of the matching cascade produced a label
type Strategy int

// Strategies, in cascade order
const (
	StrategyUnknown Strategy = iota
	StrategyBankStatementMissing
	StrategyCashRecMissing
	StrategyExact
	StrategyExactSplit
	StrategyYearOffset
	StrategyDayOffset
	StrategyPennyDiff
	StrategySplitPennyDiff
	StrategySplitOneLegShifted
	StrategySplitDateShift
	StrategyMonthOffset
	StrategyDailyBulk
)

var strategyNames = map[Strategy]string{
	StrategyUnknown:              "unknown",
	StrategyBankStatementMissing: "bank_statement_missing",
	StrategyCashRecMissing:       "cash_rec_missing",
	StrategyExact:                "exact",
	StrategyExactSplit:           "exact_split",
	StrategyYearOffset:           "year_offset",
	StrategyDayOffset:            "day_offset",
	StrategyPennyDiff:            "penny_diff",
	StrategySplitPennyDiff:       "split_penny_diff",
	StrategySplitOneLegShifted:   "split_one_leg_shifted",
	StrategySplitDateShift:       "split_date_shift",
	StrategyMonthOffset:          "month_offset",
	StrategyDailyBulk:            "daily_bulk",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// MatchLabel is the reconciliation state of a reconciled transaction. All
// transactions sharing a label with a non-zero ID form one match group.
// Coverage labels (missing statement months) carry no ID.
type MatchLabel struct {
	Strategy Strategy
	ID       int
	Offset   int             // years, days or months, depending on the strategy
	Diff     decimal.Decimal // bank minus ledger, penny strategies only
	Month    string          // YYYY-MM, coverage labels only
	Text     string          // original text of a label that could not be parsed
}

// IsCoverage reports whether the label only flags a month missing on the other side
func (l MatchLabel) IsCoverage() bool {
	return l.Strategy == StrategyBankStatementMissing || l.Strategy == StrategyCashRecMissing
}

// MatchID returns the group identifier, empty for labels that are not match groups
func (l MatchLabel) MatchID() string {
	if l.ID == 0 {
		return ""
	}
	return strconv.Itoa(l.ID)
}

// String renders the label the way it appears in exported reports
func (l MatchLabel) String() string {
	switch l.Strategy {
	case StrategyBankStatementMissing:
		return "BANK STATEMENT MISSING - " + l.Month
	case StrategyCashRecMissing:
		return "CASH REC MISSING - " + l.Month
	case StrategyExact:
		return fmt.Sprintf("EXACT MATCH - %d", l.ID)
	case StrategyExactSplit:
		return fmt.Sprintf("EXACT BUT SPLIT - %d", l.ID)
	case StrategyYearOffset:
		return fmt.Sprintf("BAD DATE, CORRECT AMOUNT - Date off %d years - %d", l.Offset, l.ID)
	case StrategyDayOffset:
		return fmt.Sprintf("MINOR BAD DATE, CORRECT AMOUNT - Date off %d days - %d", l.Offset, l.ID)
	case StrategyPennyDiff:
		return fmt.Sprintf("MINOR AMOUNT DIFF - %s difference - %d", l.Diff.String(), l.ID)
	case StrategySplitPennyDiff:
		return fmt.Sprintf("SPLIT MATCH, MINOR DIFF - %s difference - %d", l.Diff.String(), l.ID)
	case StrategySplitOneLegShifted:
		return fmt.Sprintf("MATCHED, BUT SPLIT, ONE PAYMENT OFF BY %d days - %d", l.Offset, l.ID)
	case StrategySplitDateShift:
		return fmt.Sprintf("SPLIT MATCH, DATE SHIFT - %d days off - %d", l.Offset, l.ID)
	case StrategyMonthOffset:
		return fmt.Sprintf("MONTH ERROR, CORRECT AMOUNT - Off by %d months - %d", l.Offset, l.ID)
	case StrategyDailyBulk:
		return fmt.Sprintf("SINGLE BANK TO DAILY CASH - %d", l.ID)
	}
	return l.Text
}

type labelPattern struct {
	strategy Strategy
	re       *regexp.Regexp
}

// Capture groups: offset/diff/month first when present, id last.
var labelPatterns = []labelPattern{
	{StrategyBankStatementMissing, regexp.MustCompile(`^BANK STATEMENT MISSING - (\d{4}-\d{2})$`)},
	{StrategyCashRecMissing, regexp.MustCompile(`^CASH REC MISSING - (\d{4}-\d{2})$`)},
	{StrategyExact, regexp.MustCompile(`^EXACT MATCH - (\d+)$`)},
	{StrategyExactSplit, regexp.MustCompile(`^EXACT BUT SPLIT - (\d+)$`)},
	{StrategyYearOffset, regexp.MustCompile(`^BAD DATE, CORRECT AMOUNT - Date off (\d+) years - (\d+)$`)},
	{StrategyDayOffset, regexp.MustCompile(`^MINOR BAD DATE, CORRECT AMOUNT - Date off (\d+) days - (\d+)$`)},
	{StrategyPennyDiff, regexp.MustCompile(`^MINOR AMOUNT DIFF - (-?[0-9.]+) difference - (\d+)$`)},
	{StrategySplitPennyDiff, regexp.MustCompile(`^SPLIT MATCH, MINOR DIFF - (-?[0-9.]+) difference - (\d+)$`)},
	{StrategySplitOneLegShifted, regexp.MustCompile(`^MATCHED, BUT SPLIT, ONE PAYMENT OFF BY (\d+) days - (\d+)$`)},
	{StrategySplitDateShift, regexp.MustCompile(`^SPLIT MATCH, DATE SHIFT - (\d+) days off - (\d+)$`)},
	{StrategyMonthOffset, regexp.MustCompile(`^MONTH ERROR, CORRECT AMOUNT - Off by (\d+) months - (\d+)$`)},
	{StrategyDailyBulk, regexp.MustCompile(`^SINGLE BANK TO DAILY CASH - (\d+)$`)},
}

var trailingID = regexp.MustCompile(`-\s*(\d+)\s*$`)

// ParseMatchLabel recovers a label from its exported text. Empty text means
// unreconciled and returns false. Text that matches no known label keeps its
// trailing "- N" number as the group ID, if any.
func ParseMatchLabel(text string) (MatchLabel, bool) {
	if text == "" {
		return MatchLabel{}, false
	}

	for _, p := range labelPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		label := MatchLabel{Strategy: p.strategy}
		if label.IsCoverage() {
			label.Month = m[1]
			return label, true
		}

		label.ID, _ = strconv.Atoi(m[len(m)-1])
		if len(m) == 3 {
			switch p.strategy {
			case StrategyPennyDiff, StrategySplitPennyDiff:
				label.Diff, _ = decimal.NewFromString(m[1])
			default:
				label.Offset, _ = strconv.Atoi(m[1])
			}
		}
		return label, true
	}

	label := MatchLabel{Strategy: StrategyUnknown, Text: text}
	if m := trailingID.FindStringSubmatch(text); m != nil {
		label.ID, _ = strconv.Atoi(m[1])
	}
	return label, true
}

// MatchGroup lists the rows, by position, that share one match label
type MatchGroup struct {
	Label      MatchLabel
	LedgerRows []int
	BankRows   []int
}
