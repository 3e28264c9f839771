package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ReportRow is one line of the side-by-side reconciliation report. A row
// carries a bank side, a ledger side, or both when they share a match label.
type ReportRow struct {
	HasBank       bool
	BankDate      civil.Date // Calculated_Date
	AccountNumber string
	CompanyName   string
	Currency      string
	Description1A string
	Description1B string
	Description2  string
	Debit         decimal.Decimal
	Credit        decimal.Decimal

	Label *MatchLabel

	HasLedger     bool
	FundShortName string
	Type          string
	CashDate      civil.Date
	Detail        string
	Amount        decimal.Decimal

	// AmountsValid is false when a non-blank amount cell could not be read as a number
	AmountsValid bool
}

// BankAmount is the signed bank-side amount, credit minus debit
func (r ReportRow) BankAmount() decimal.Decimal {
	return r.Credit.Sub(r.Debit)
}

// MatchID returns the match group identifier of the row, if any
func (r ReportRow) MatchID() string {
	if r.Label == nil {
		return ""
	}
	return r.Label.MatchID()
}

// LabelText returns the exported form of the row's label
func (r ReportRow) LabelText() string {
	if r.Label == nil {
		return ""
	}
	return r.Label.String()
}

// Tag sources, recording which rule path produced a tag
const (
	SourcePriorityPhrase      = "priority_phrase"
	SourceInvestment          = "investment"
	SourceInvestmentNoMatch   = "investment_no_match"
	SourceInvestorRules       = "investor_rules"
	SourceInvestorNoMatch     = "investor_no_match"
	SourceExpenseRules        = "expense_rules"
	SourceExpenseFallbackType = "expense_fallback_type"
	SourceTypePassthrough     = "type_passthrough"
)

// Tag is the classification of one row. Empty strings mean "not resolved".
type Tag struct {
	TypeGroup           string
	Tag                 string
	Originator          string
	SPV                 string
	Investor            string
	Year                string
	Source              string
	YearRequiredMissing bool
}

// TaggedRow is a report row with its classification
type TaggedRow struct {
	ReportRow
	Tag Tag
}
