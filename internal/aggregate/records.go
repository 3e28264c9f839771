package aggregate

import (
	"strconv"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
	"github.com/tirasundara/cashrec-reconciliation/internal/report"
)

// Tag and aggregate columns appended to the report layout
var tagColumns = []string{
	"Bank_Amount", "CashRec_Amount", "Match_ID",
	"Type_Group", "Tag", "Investor", "Originator", "SPV", "Tag_Year", "Tag_Source", "Tag_Year_Required_Missing",
	"Bank_Amount_Total", "Bank_Date_Min", "Bank_Date_Max", "Bank_Desc1B", "Bank_Desc2",
	"CashRec_Amount_Total", "Cash_Date_Min", "Cash_Date_Max",
	"Amount_Diff", "Date_Lag_Days", "Status", "Account_ID",
}

// DetailedColumns is the layout of the detailed and exceptions exports
var DetailedColumns = append(append([]string(nil), report.Columns...), tagColumns...)

// SummaryColumns is the layout of the summary export
var SummaryColumns = []string{"Type", "Type_Group", "Tag", "Tag_Year", "CashRec_Amount_Total", "Rows", "Account_ID"}

// SuggestionColumns is the layout of the tag suggestions export
var SuggestionColumns = []string{"ngram_2_3", "count", "token", "count", "Account_ID"}

// MislabelColumns is the layout of the mislabel suspicions export
var MislabelColumns = []string{
	"Row_Index", "Current_Type", "Suggested_Type", "Confidence", "Reasons",
	"Calculated_Date", "Cash_Date", "Description1B", "Description2", "Detail",
	"Amount", "Match_ID", "Tag", "Status", "Account_ID",
}

// DetailedRecords renders detailed rows in DetailedColumns order
func DetailedRecords(account string, rows []DetailedRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, d := range rows {
		t := d.Tag
		g := d.Group

		bankAmount, cashAmount := "", ""
		if d.HasBank {
			bankAmount = report.Money(d.BankAmount())
		}
		if d.HasLedger {
			cashAmount = report.Money(d.Amount)
		}

		lag := ""
		if g.DateLag >= 0 {
			lag = strconv.Itoa(g.DateLag)
		}

		rec := report.Record(d.ReportRow)
		rec = append(rec,
			bankAmount,
			cashAmount,
			d.MatchID(),
			t.TypeGroup,
			t.Tag,
			t.Investor,
			t.Originator,
			t.SPV,
			t.Year,
			t.Source,
			strconv.FormatBool(t.YearRequiredMissing),
			report.Money(g.BankTotal),
			normalize.FormatDate(g.BankDateMin),
			normalize.FormatDate(g.BankDateMax),
			g.BankDesc1B,
			g.BankDesc2,
			report.Money(g.LedgerTotal),
			normalize.FormatDate(g.CashDateMin),
			normalize.FormatDate(g.CashDateMax),
			report.Money(g.Diff),
			lag,
			d.Status,
			account,
		)
		out = append(out, rec)
	}
	return out
}

// SummaryRecords renders the summary in SummaryColumns order
func SummaryRecords(account string, rows []SummaryRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, s := range rows {
		out = append(out, []string{
			s.Type, s.TypeGroup, s.Tag, s.Year,
			report.Money(s.Total),
			strconv.Itoa(s.Rows),
			account,
		})
	}
	return out
}

// SuggestionRecords renders n-grams and tokens side by side
func SuggestionRecords(account string, s Suggestions) [][]string {
	out := make([][]string, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		rec := make([]string, 0, len(SuggestionColumns))
		rec = append(rec, countCells(s.NGrams, i)...)
		rec = append(rec, countCells(s.Tokens, i)...)
		rec = append(rec, account)
		out = append(out, rec)
	}
	return out
}

func countCells(counts []Count, i int) []string {
	if i >= len(counts) {
		return []string{"", ""}
	}
	return []string{counts[i].Term, strconv.Itoa(counts[i].Count)}
}

// MislabelRecords renders suspicions in MislabelColumns order
func MislabelRecords(account string, rows []Mislabel) [][]string {
	out := make([][]string, 0, len(rows))
	for _, m := range rows {
		amount := ""
		if m.HasLedger {
			amount = report.Money(m.Amount)
		}
		out = append(out, []string{
			strconv.Itoa(m.Row),
			m.CurrentType,
			m.SuggestedType,
			strconv.FormatFloat(m.Confidence, 'f', 2, 64),
			strings.Join(m.Reasons, ";"),
			normalize.FormatDate(m.BankDate),
			normalize.FormatDate(m.CashDate),
			m.Description1B,
			m.Description2,
			m.Detail,
			amount,
			m.MatchID(),
			m.Tag.Tag,
			m.Status,
			account,
		})
	}
	return out
}
