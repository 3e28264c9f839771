// Package audit derives the month-level coverage of a reconciled account
// and appends it to the run's audit log.
package audit

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
)

// Audit compares the calendar months of both sides over their full date
// range, reconciled or not, and counts the rows left unreconciled.
func Audit(account, fund string, ledger []domain.LedgerTransaction, bank []domain.BankTransaction) domain.AuditEntry {
	ledgerMonths := make(map[string]bool)
	entry := domain.AuditEntry{
		Account: account,
		Fund:    fund,
	}

	for i := range ledger {
		addMonth(ledgerMonths, ledger[i].Date)
		if !ledger[i].Reconciled() {
			entry.UnreconciledCashCount++
		}
	}

	bankMonths := make(map[string]bool)
	for i := range bank {
		addMonth(bankMonths, bank[i].Date)
		if !bank[i].Reconciled() {
			entry.UnreconciledBankCount++
		}
	}

	entry.MissingBankMonths = difference(ledgerMonths, bankMonths)
	entry.MissingCashMonths = difference(bankMonths, ledgerMonths)
	return entry
}

func addMonth(months map[string]bool, d civil.Date) {
	if m := normalize.MonthOf(d); m != "" {
		months[m] = true
	}
}

// difference returns the months in a that are not in b, sorted
func difference(a, b map[string]bool) []string {
	out := make([]string, 0)
	for m := range a {
		if !b[m] {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
