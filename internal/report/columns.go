package report

import (
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
)

// Column names shared by the exported tables
const (
	ColCalculatedDate = "Calculated_Date"
	ColAccount        = "Acct_From_Filename"
	ColCompanyName    = "Company_Name"
	ColCurrency       = "CCY_Type"
	ColDescription1A  = "Description1A"
	ColDescription1B  = "Description1B"
	ColDescription2   = "Description2"
	ColDebit          = "Debit"
	ColCredit         = "Credit"
	ColNet            = "Net"
	ColReconciled     = "Reconciled"
	ColFundShortName  = "FundShortName"
	ColType           = "Type"
	ColDate           = "Date"
	ColCashDate       = "Cash_Date"
	ColDetail         = "Detail"
	ColAmount         = "Amount"
)

// BankColumns are the bank-side columns of the side-by-side report
var BankColumns = []string{
	ColCalculatedDate, ColAccount, ColCompanyName, ColCurrency,
	ColDescription1A, ColDescription1B, ColDescription2, ColDebit, ColCredit,
}

// LedgerColumns are the ledger-side columns of the side-by-side report
var LedgerColumns = []string{ColFundShortName, ColType, ColCashDate, ColDetail, ColAmount}

// Columns is the fixed column order of the side-by-side report
var Columns = concat(BankColumns, []string{ColReconciled}, LedgerColumns)

// ReconciledBankColumns is the layout of the labelled bank statement export
var ReconciledBankColumns = concat(BankColumns, []string{ColNet, ColReconciled})

// ReconciledCashColumns is the layout of the labelled ledger export
var ReconciledCashColumns = []string{ColFundShortName, ColType, ColDate, ColDetail, ColAmount, ColReconciled}

// Record renders a report row in Columns order. Absent sides are blank.
func Record(r domain.ReportRow) []string {
	rec := make([]string, 0, len(Columns))

	if r.HasBank {
		rec = append(rec,
			normalize.FormatDate(r.BankDate),
			r.AccountNumber,
			r.CompanyName,
			r.Currency,
			r.Description1A,
			r.Description1B,
			r.Description2,
			Money(r.Debit),
			Money(r.Credit),
		)
	} else {
		rec = append(rec, make([]string, len(BankColumns))...)
	}

	rec = append(rec, r.LabelText())

	if r.HasLedger {
		rec = append(rec,
			r.FundShortName,
			r.Type,
			normalize.FormatDate(r.CashDate),
			r.Detail,
			Money(r.Amount),
		)
	} else {
		rec = append(rec, make([]string, len(LedgerColumns))...)
	}

	return rec
}

// Records renders every report row
func Records(rows []domain.ReportRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record(r))
	}
	return out
}

// BankRecords renders the labelled bank statement
func BankRecords(bank []domain.BankTransaction) [][]string {
	out := make([][]string, 0, len(bank))
	for i := range bank {
		b := &bank[i]
		out = append(out, []string{
			normalize.FormatDate(b.Date),
			b.AccountNumber,
			b.CompanyName,
			b.Currency,
			b.Description1A,
			b.Description1B,
			b.Description2,
			Money(b.Debit),
			Money(b.Credit),
			Money(b.Net),
			labelText(b.Label),
		})
	}
	return out
}

// CashRecords renders the labelled ledger
func CashRecords(ledger []domain.LedgerTransaction) [][]string {
	out := make([][]string, 0, len(ledger))
	for i := range ledger {
		l := &ledger[i]
		out = append(out, []string{
			l.FundShortName,
			l.Type,
			normalize.FormatDate(l.Date),
			l.Detail,
			Money(l.Net),
			labelText(l.Label),
		})
	}
	return out
}

// Money renders an amount with two decimal places
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func labelText(l *domain.MatchLabel) string {
	if l == nil {
		return ""
	}
	return l.String()
}

func concat(parts ...[]string) []string {
	out := make([]string, 0)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
