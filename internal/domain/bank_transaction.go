package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Entry holds the fields every transaction carries through the matching cascade
type Entry struct {
	Row   int             // position in the source file after filtering
	Date  civil.Date      // zero (invalid) date when the source value could not be parsed
	Net   decimal.Decimal // signed, positive = inflow, rounded to 2 decimal places
	Label *MatchLabel     // nil while unreconciled
}

// Reconciled reports whether a match label has been assigned
func (e *Entry) Reconciled() bool {
	return e.Label != nil
}

// DateKnown reports whether the entry has a usable calendar date
func (e *Entry) DateKnown() bool {
	return e.Date.IsValid()
}

// Assign sets the match label. It refuses to overwrite an existing label,
// a reconciled entry stays reconciled for the rest of the run.
func (e *Entry) Assign(label MatchLabel) bool {
	if e.Label != nil {
		return false
	}

	l := label
	e.Label = &l
	return true
}

// BankTransaction represents a line from an external bank statement
type BankTransaction struct {
	Entry
	AccountNumber string // Acct_From_Filename
	CompanyName   string
	Currency      string // CCY_Type
	Description1A string
	Description1B string
	Description2  string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}
