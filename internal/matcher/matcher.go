package matcher

import (
	"fmt"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// Options tunes the relaxed stages of the cascade
type Options struct {
	YearOffsets     []int
	MaxDayOffset    int
	MaxPennyCents   int
	SplitWindowDays int
	SplitShiftDays  int
	MaxMonthOffset  int
}

// DefaultOptions returns the standard cascade settings
func DefaultOptions() Options {
	return Options{
		YearOffsets:     []int{1, 2, 10},
		MaxDayOffset:    27,
		MaxPennyCents:   99,
		SplitWindowDays: 7,
		SplitShiftDays:  3,
		MaxMonthOffset:  3,
	}
}

// DefaultStages returns the full cascade, in the order it must run
func DefaultStages(opts Options) []Stage {
	return []Stage{
		NewCoverageStage(),
		NewExactMatchStrategy(),
		NewSplitMatchStrategy(),
		NewYearOffsetStrategy(opts.YearOffsets...),
		NewDayOffsetStrategy(opts.MaxDayOffset),
		NewPennyDiffStrategy(opts.MaxPennyCents),
		NewSplitPennyDiffStrategy(opts.MaxPennyCents),
		NewSplitOneLegShiftedStrategy(opts.SplitWindowDays),
		NewSplitDateShiftStrategy(opts.SplitShiftDays),
		NewMonthOffsetStrategy(opts.MaxMonthOffset),
		NewDailyBulkStrategy(),
	}
}

// Labeler implements the TransactionLabeler interface by running the
// stages strictly in order over a shared pool
type Labeler struct {
	stages []Stage
}

// NewLabeler creates a new Labeler with the given stages
func NewLabeler(stages ...Stage) *Labeler {
	if len(stages) == 0 {

		// Default cascade
		stages = DefaultStages(DefaultOptions())
	}

	return &Labeler{
		stages: stages,
	}
}

// Label assigns match labels to the ledger and bank rows in place. Rows
// that no stage can match stay unreconciled.
func (m *Labeler) Label(ledger []domain.LedgerTransaction, bank []domain.BankTransaction) (domain.LabelOutcome, error) {
	pool := NewPool(ledger, bank)
	outcome := domain.LabelOutcome{
		Stages: make([]domain.StageStat, 0, len(m.stages)),
	}

	for _, stage := range m.stages {
		before := len(pool.Groups())

		if err := stage.Run(pool); err != nil {
			return outcome, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}

		unreconciledLedger, unreconciledBank := pool.Unreconciled()
		outcome.Stages = append(outcome.Stages, domain.StageStat{
			Stage:              stage.Name(),
			Groups:             len(pool.Groups()) - before,
			UnreconciledLedger: unreconciledLedger,
			UnreconciledBank:   unreconciledBank,
		})
	}

	outcome.Groups = pool.Groups()
	return outcome, nil
}
