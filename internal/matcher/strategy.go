package matcher

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
)

// Stage is one step of the matching cascade. A stage only looks at rows
// that are still unreconciled and labels what it can match.
type Stage interface {
	Name() string
	Run(p *Pool) error
}

// CoverageStage flags rows in calendar months that have no rows at all on
// the other side
type CoverageStage struct{}

// NewCoverageStage creates a new CoverageStage
func NewCoverageStage() *CoverageStage {
	return &CoverageStage{}
}

func (s *CoverageStage) Name() string { return "coverage" }

// Run implements the Stage interface
func (s *CoverageStage) Run(p *Pool) error {
	pass := p.Begin()

	ledgerMonths := make(map[string][]int)
	ledgerOrder := make([]string, 0)
	for _, i := range pass.LedgerRows() {
		m := normalize.MonthOf(pass.Ledger(i).Date)
		if m == "" {
			continue
		}
		if _, seen := ledgerMonths[m]; !seen {
			ledgerOrder = append(ledgerOrder, m)
		}
		ledgerMonths[m] = append(ledgerMonths[m], i)
	}

	bankMonths := make(map[string][]int)
	bankOrder := make([]string, 0)
	for _, i := range pass.BankRows() {
		m := normalize.MonthOf(pass.Bank(i).Date)
		if m == "" {
			continue
		}
		if _, seen := bankMonths[m]; !seen {
			bankOrder = append(bankOrder, m)
		}
		bankMonths[m] = append(bankMonths[m], i)
	}

	for _, m := range ledgerOrder {
		if _, ok := bankMonths[m]; ok {
			continue
		}
		pass.Flag(domain.MatchLabel{Strategy: domain.StrategyBankStatementMissing, Month: m}, nil, ledgerMonths[m])
	}

	for _, m := range bankOrder {
		if _, ok := ledgerMonths[m]; ok {
			continue
		}
		pass.Flag(domain.MatchLabel{Strategy: domain.StrategyCashRecMissing, Month: m}, bankMonths[m], nil)
	}

	return pass.Commit()
}

// ExactMatchStrategy matches one bank row to one ledger row with the same
// date and amount
type ExactMatchStrategy struct{}

// NewExactMatchStrategy creates a new ExactMatchStrategy
func NewExactMatchStrategy() *ExactMatchStrategy {
	return &ExactMatchStrategy{}
}

func (s *ExactMatchStrategy) Name() string { return "exact" }

// Run implements the Stage interface
func (s *ExactMatchStrategy) Run(p *Pool) error {
	pass := p.Begin()

	for _, b := range pass.BankRows() {
		bank := pass.Bank(b)
		if !bank.DateKnown() {
			continue
		}

		row, found := pass.First(func(l *domain.LedgerTransaction) bool {
			return l.Date == bank.Date && l.Net.Equal(bank.Net)
		})
		if found {
			pass.Match(domain.MatchLabel{Strategy: domain.StrategyExact}, b, row)
		}
	}

	return pass.Commit()
}

// SplitMatchStrategy matches one bank row to two ledger rows on the same
// date whose amounts add up to the bank amount
type SplitMatchStrategy struct{}

// NewSplitMatchStrategy creates a new SplitMatchStrategy
func NewSplitMatchStrategy() *SplitMatchStrategy {
	return &SplitMatchStrategy{}
}

func (s *SplitMatchStrategy) Name() string { return "split" }

// Run implements the Stage interface
func (s *SplitMatchStrategy) Run(p *Pool) error {
	pass := p.Begin()

	for _, b := range pass.BankRows() {
		bank := pass.Bank(b)
		if !bank.DateKnown() {
			continue
		}

		rows := pass.Candidates(onDate(bank.Date))
		i, j, found := firstPair(pass, rows, func(sum decimal.Decimal) bool {
			return sum.Equal(bank.Net)
		})
		if found {
			pass.Match(domain.MatchLabel{Strategy: domain.StrategyExactSplit}, b, i, j)
		}
	}

	return pass.Commit()
}

// YearOffsetStrategy matches rows whose dates share month and day but are
// a fixed number of years apart
type YearOffsetStrategy struct {
	Offsets []int
}

// NewYearOffsetStrategy creates a new YearOffsetStrategy trying the offsets in order
func NewYearOffsetStrategy(offsets ...int) *YearOffsetStrategy {
	return &YearOffsetStrategy{
		Offsets: offsets,
	}
}

func (s *YearOffsetStrategy) Name() string { return "year_offset" }

// Run implements the Stage interface
func (s *YearOffsetStrategy) Run(p *Pool) error {
	for _, offset := range s.Offsets {
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			row, found := pass.First(func(l *domain.LedgerTransaction) bool {
				return l.DateKnown() &&
					l.Date.Month == bank.Date.Month &&
					l.Date.Day == bank.Date.Day &&
					abs(l.Date.Year-bank.Date.Year) == offset &&
					l.Net.Equal(bank.Net)
			})
			if found {
				pass.Match(domain.MatchLabel{Strategy: domain.StrategyYearOffset, Offset: offset}, b, row)
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// DayOffsetStrategy matches same-amount rows whose dates are a few days
// apart. Smaller gaps are tried first.
type DayOffsetStrategy struct {
	MaxDays int
}

// NewDayOffsetStrategy creates a new DayOffsetStrategy with the given maximum gap
func NewDayOffsetStrategy(maxDays int) *DayOffsetStrategy {
	return &DayOffsetStrategy{
		MaxDays: maxDays,
	}
}

func (s *DayOffsetStrategy) Name() string { return "day_offset" }

// Run implements the Stage interface
func (s *DayOffsetStrategy) Run(p *Pool) error {
	for days := 1; days <= s.MaxDays; days++ {
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			row, found := pass.First(func(l *domain.LedgerTransaction) bool {
				return dayGap(l.Date, bank.Date) == days && l.Net.Equal(bank.Net)
			})
			if found {
				pass.Match(domain.MatchLabel{Strategy: domain.StrategyDayOffset, Offset: days}, b, row)
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// PennyDiffStrategy matches same-date rows whose amounts differ by a few
// cents. Smaller differences are tried first.
type PennyDiffStrategy struct {
	MaxCents int
}

// NewPennyDiffStrategy creates a new PennyDiffStrategy with the given maximum difference in cents
func NewPennyDiffStrategy(maxCents int) *PennyDiffStrategy {
	return &PennyDiffStrategy{
		MaxCents: maxCents,
	}
}

func (s *PennyDiffStrategy) Name() string { return "penny_diff" }

// Run implements the Stage interface
func (s *PennyDiffStrategy) Run(p *Pool) error {
	for cents := 1; cents <= s.MaxCents; cents++ {
		tolerance := decimal.New(int64(cents), -2)
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			row, found := pass.First(func(l *domain.LedgerTransaction) bool {
				return l.Date == bank.Date && normalize.Round(l.Net.Sub(bank.Net).Abs()).Equal(tolerance)
			})
			if found {
				diff := normalize.Round(bank.Net.Sub(pass.Ledger(row).Net))
				pass.Match(domain.MatchLabel{Strategy: domain.StrategyPennyDiff, Diff: diff}, b, row)
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// SplitPennyDiffStrategy matches a same-date ledger pair whose sum differs
// from the bank amount by a few cents
type SplitPennyDiffStrategy struct {
	MaxCents int
}

// NewSplitPennyDiffStrategy creates a new SplitPennyDiffStrategy with the given maximum difference in cents
func NewSplitPennyDiffStrategy(maxCents int) *SplitPennyDiffStrategy {
	return &SplitPennyDiffStrategy{
		MaxCents: maxCents,
	}
}

func (s *SplitPennyDiffStrategy) Name() string { return "split_penny_diff" }

// Run implements the Stage interface
func (s *SplitPennyDiffStrategy) Run(p *Pool) error {
	for cents := 1; cents <= s.MaxCents; cents++ {
		tolerance := decimal.New(int64(cents), -2)
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			rows := pass.Candidates(onDate(bank.Date))
			i, j, found := firstPair(pass, rows, func(sum decimal.Decimal) bool {
				return normalize.Round(bank.Net.Sub(sum).Abs()).Equal(tolerance)
			})
			if found {
				sum := pass.Ledger(i).Net.Add(pass.Ledger(j).Net)
				diff := normalize.Round(bank.Net.Sub(sum))
				pass.Match(domain.MatchLabel{Strategy: domain.StrategySplitPennyDiff, Diff: diff}, b, i, j)
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// SplitOneLegShiftedStrategy matches a ledger pair where one leg is on the
// bank date and the other is within a window around it
type SplitOneLegShiftedStrategy struct {
	WindowDays int
}

// NewSplitOneLegShiftedStrategy creates a new SplitOneLegShiftedStrategy with the given window
func NewSplitOneLegShiftedStrategy(windowDays int) *SplitOneLegShiftedStrategy {
	return &SplitOneLegShiftedStrategy{
		WindowDays: windowDays,
	}
}

func (s *SplitOneLegShiftedStrategy) Name() string { return "split_one_leg_shifted" }

// Run implements the Stage interface
func (s *SplitOneLegShiftedStrategy) Run(p *Pool) error {
	pass := p.Begin()

	for _, b := range pass.BankRows() {
		bank := pass.Bank(b)
		if !bank.DateKnown() {
			continue
		}

		exact := pass.Candidates(onDate(bank.Date))
		near := pass.Candidates(func(l *domain.LedgerTransaction) bool {
			gap := dayGap(l.Date, bank.Date)
			return gap > 0 && gap <= s.WindowDays
		})

	search:
		for _, i := range exact {
			for _, j := range near {
				sum := normalize.Round(pass.Ledger(i).Net.Add(pass.Ledger(j).Net))
				if !sum.Equal(bank.Net) {
					continue
				}

				offset := dayGap(pass.Ledger(j).Date, bank.Date)
				pass.Match(domain.MatchLabel{Strategy: domain.StrategySplitOneLegShifted, Offset: offset}, b, i, j)
				break search
			}
		}
	}

	return pass.Commit()
}

// SplitDateShiftStrategy matches a ledger pair sharing one date that is a
// few days away from the bank date
type SplitDateShiftStrategy struct {
	MaxShift int
}

// NewSplitDateShiftStrategy creates a new SplitDateShiftStrategy with the given maximum shift
func NewSplitDateShiftStrategy(maxShift int) *SplitDateShiftStrategy {
	return &SplitDateShiftStrategy{
		MaxShift: maxShift,
	}
}

func (s *SplitDateShiftStrategy) Name() string { return "split_date_shift" }

// Run implements the Stage interface
func (s *SplitDateShiftStrategy) Run(p *Pool) error {
	for shift := 1; shift <= s.MaxShift; shift++ {
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			shifted := pass.Candidates(func(l *domain.LedgerTransaction) bool {
				return dayGap(l.Date, bank.Date) == shift
			})

			for _, rows := range byDate(pass, shifted) {
				i, j, found := firstPair(pass, rows, func(sum decimal.Decimal) bool {
					return sum.Equal(bank.Net)
				})
				if found {
					pass.Match(domain.MatchLabel{Strategy: domain.StrategySplitDateShift, Offset: shift}, b, i, j)
					break
				}
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// MonthOffsetStrategy matches same-amount rows whose dates share year and
// day but are a few months apart
type MonthOffsetStrategy struct {
	MaxMonths int
}

// NewMonthOffsetStrategy creates a new MonthOffsetStrategy with the given maximum offset
func NewMonthOffsetStrategy(maxMonths int) *MonthOffsetStrategy {
	return &MonthOffsetStrategy{
		MaxMonths: maxMonths,
	}
}

func (s *MonthOffsetStrategy) Name() string { return "month_offset" }

// Run implements the Stage interface
func (s *MonthOffsetStrategy) Run(p *Pool) error {
	for months := 1; months <= s.MaxMonths; months++ {
		pass := p.Begin()

		for _, b := range pass.BankRows() {
			bank := pass.Bank(b)
			if !bank.DateKnown() {
				continue
			}

			row, found := pass.First(func(l *domain.LedgerTransaction) bool {
				return l.DateKnown() &&
					l.Date.Year == bank.Date.Year &&
					l.Date.Day == bank.Date.Day &&
					abs(int(l.Date.Month)-int(bank.Date.Month)) == months &&
					l.Net.Equal(bank.Net)
			})
			if found {
				pass.Match(domain.MatchLabel{Strategy: domain.StrategyMonthOffset, Offset: months}, b, row)
			}
		}

		if err := pass.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// DailyBulkStrategy matches one bank row against the total of every
// unreconciled ledger row on its date
type DailyBulkStrategy struct{}

// NewDailyBulkStrategy creates a new DailyBulkStrategy
func NewDailyBulkStrategy() *DailyBulkStrategy {
	return &DailyBulkStrategy{}
}

func (s *DailyBulkStrategy) Name() string { return "daily_bulk" }

// Run implements the Stage interface
func (s *DailyBulkStrategy) Run(p *Pool) error {
	pass := p.Begin()

	totals := make(map[civil.Date]decimal.Decimal)
	for _, i := range pass.LedgerRows() {
		l := pass.Ledger(i)
		if !l.DateKnown() {
			continue
		}
		totals[l.Date] = totals[l.Date].Add(l.Net)
	}

	for _, b := range pass.BankRows() {
		bank := pass.Bank(b)
		if !bank.DateKnown() {
			continue
		}

		total, ok := totals[bank.Date]
		if !ok || !normalize.Round(total).Equal(bank.Net) {
			continue
		}

		// a date is consumed by the first bank row that matches its total
		delete(totals, bank.Date)
		pass.Match(domain.MatchLabel{Strategy: domain.StrategyDailyBulk}, b, pass.Candidates(onDate(bank.Date))...)
	}

	return pass.Commit()
}

func onDate(d civil.Date) func(*domain.LedgerTransaction) bool {
	return func(l *domain.LedgerTransaction) bool {
		return l.DateKnown() && l.Date == d
	}
}

// firstPair returns the first i<j pair of rows, in row order, whose summed
// amounts are accepted by ok
func firstPair(pass *Pass, rows []int, ok func(sum decimal.Decimal) bool) (int, int, bool) {
	for a := 0; a < len(rows); a++ {
		for b := a + 1; b < len(rows); b++ {
			sum := normalize.Round(pass.Ledger(rows[a]).Net.Add(pass.Ledger(rows[b]).Net))
			if ok(sum) {
				return rows[a], rows[b], true
			}
		}
	}
	return 0, 0, false
}

// byDate groups rows by date, keeping dates in order of first appearance
func byDate(pass *Pass, rows []int) [][]int {
	index := make(map[civil.Date]int)
	groups := make([][]int, 0)
	for _, i := range rows {
		d := pass.Ledger(i).Date
		pos, ok := index[d]
		if !ok {
			pos = len(groups)
			index[d] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], i)
	}
	return groups
}

// dayGap is the absolute number of days between two dates, -1 when either is unknown
func dayGap(a, b civil.Date) int {
	if !a.IsValid() || !b.IsValid() {
		return -1
	}
	return abs(a.DaysSince(b))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
