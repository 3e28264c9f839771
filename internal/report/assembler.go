package report

import (
	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// Assemble stitches both sides of a labelled account into the side-by-side
// report. Blocks, in order: matched bank rows joined to their ledger rows,
// ledger rows in months with no bank statement, unmatched bank rows and
// unmatched ledger rows.
//
// When one match label spans several report rows, only the first row keeps
// the bank columns. Coverage labels always keep them.
func Assemble(ledger []domain.LedgerTransaction, bank []domain.BankTransaction) []domain.ReportRow {
	legs := make(map[string][]int)
	for i := range ledger {
		if ledger[i].Label == nil {
			continue
		}
		key := ledger[i].Label.String()
		legs[key] = append(legs[key], i)
	}

	rows := make([]domain.ReportRow, 0, len(ledger)+len(bank))

	// matched, side by side
	seen := make(map[string]bool)
	for i := range bank {
		b := &bank[i]
		if b.Label == nil {
			continue
		}

		key := b.Label.String()
		matched := legs[key]
		if len(matched) == 0 {
			rows = append(rows, bankSide(b))
			seen[key] = true
			continue
		}

		for _, j := range matched {
			row := bankSide(b)
			if seen[key] && !b.Label.IsCoverage() {
				blankBank(&row)
			}
			seen[key] = true

			withLedger(&row, &ledger[j])
			rows = append(rows, row)
		}
	}

	// ledger months with no statement
	for i := range ledger {
		l := &ledger[i]
		if l.Label == nil || l.Label.Strategy != domain.StrategyBankStatementMissing {
			continue
		}
		rows = append(rows, ledgerSide(l))
	}

	// unmatched bank
	for i := range bank {
		if bank[i].Label == nil {
			rows = append(rows, bankSide(&bank[i]))
		}
	}

	// unmatched ledger
	for i := range ledger {
		if ledger[i].Label == nil {
			rows = append(rows, ledgerSide(&ledger[i]))
		}
	}

	return rows
}

func bankSide(b *domain.BankTransaction) domain.ReportRow {
	return domain.ReportRow{
		HasBank:       true,
		BankDate:      b.Date,
		AccountNumber: b.AccountNumber,
		CompanyName:   b.CompanyName,
		Currency:      b.Currency,
		Description1A: b.Description1A,
		Description1B: b.Description1B,
		Description2:  b.Description2,
		Debit:         b.Debit,
		Credit:        b.Credit,
		Label:         b.Label,
		AmountsValid:  true,
	}
}

func ledgerSide(l *domain.LedgerTransaction) domain.ReportRow {
	row := domain.ReportRow{
		Label:        l.Label,
		AmountsValid: true,
	}
	withLedger(&row, l)
	return row
}

func withLedger(row *domain.ReportRow, l *domain.LedgerTransaction) {
	row.HasLedger = true
	row.FundShortName = l.FundShortName
	row.Type = l.Type
	row.CashDate = l.Date
	row.Detail = l.Detail
	row.Amount = l.Net
}

// blankBank clears the bank columns but keeps the label
func blankBank(row *domain.ReportRow) {
	label := row.Label
	*row = domain.ReportRow{
		Label:        label,
		AmountsValid: row.AmountsValid,
	}
}
