package aggregate_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirasundara/cashrec-reconciliation/internal/aggregate"
	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: d}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func matched(id int) *domain.MatchLabel {
	return &domain.MatchLabel{Strategy: domain.StrategyExact, ID: id}
}

func bankRow(label *domain.MatchLabel, date civil.Date, credit string) domain.ReportRow {
	return domain.ReportRow{HasBank: true, BankDate: date, Credit: money(credit), Label: label, AmountsValid: true}
}

func withLedger(r domain.ReportRow, date civil.Date, typ, amount string) domain.ReportRow {
	r.HasLedger = true
	r.CashDate = date
	r.Type = typ
	r.Amount = money(amount)
	return r
}

func tagged(r domain.ReportRow, tag domain.Tag) domain.TaggedRow {
	return domain.TaggedRow{ReportRow: r, Tag: tag}
}

var expenseTag = domain.Tag{TypeGroup: domain.GroupExpense, Tag: "Audit", Source: domain.SourceExpenseRules}

func TestAggregate_Statuses(t *testing.T) {
	invalid := withLedger(domain.ReportRow{Label: matched(4)}, day(1), "Rent", "0")

	rows := []domain.TaggedRow{
		// group 1 balances across a split
		tagged(withLedger(bankRow(matched(1), day(1), "500"), day(1), "Rent", "300"), expenseTag),
		tagged(withLedger(domain.ReportRow{Label: matched(1), AmountsValid: true}, day(1), "Rent", "200"), expenseTag),
		// group 2 is off by five, no fee wording
		tagged(withLedger(bankRow(matched(2), day(2), "105"), day(2), "Rent", "100"), expenseTag),
		// group 3 is off by five but mentions a fee
		tagged(withLedger(func() domain.ReportRow {
			r := bankRow(matched(3), day(3), "95")
			r.Description2 = "less bank charges"
			return r
		}(), day(3), "Rent", "100"), expenseTag),
		tagged(invalid, expenseTag),
		tagged(bankRow(nil, day(9), "7"), expenseTag),
	}

	res := aggregate.Aggregate("111", rows, aggregate.DefaultOptions())
	require.Len(t, res.Detailed, len(rows))

	assert.Equal(t, aggregate.StatusMatched, res.Detailed[0].Status)
	assert.Equal(t, aggregate.StatusMatched, res.Detailed[1].Status)
	assert.True(t, res.Detailed[0].Group.BankTotal.Equal(money("500")))
	assert.True(t, res.Detailed[1].Group.LedgerTotal.Equal(money("500")))
	assert.Equal(t, 0, res.Detailed[0].Group.DateLag)

	assert.Equal(t, aggregate.StatusMismatch, res.Detailed[2].Status)
	assert.True(t, res.Detailed[2].Group.Diff.Equal(money("5")))
	assert.Equal(t, aggregate.StatusMatchedWithSplitFees, res.Detailed[3].Status)
	assert.Equal(t, aggregate.StatusInvalidAmounts, res.Detailed[4].Status)
	assert.Equal(t, aggregate.StatusUnlinked, res.Detailed[5].Status)
	assert.Equal(t, -1, res.Detailed[5].Group.DateLag)

	require.Len(t, res.Exceptions, 3)
	assert.Equal(t, aggregate.StatusMismatch, res.Exceptions[0].Status)
	assert.Equal(t, aggregate.StatusInvalidAmounts, res.Exceptions[1].Status)
	assert.Equal(t, aggregate.StatusUnlinked, res.Exceptions[2].Status)
}

func TestAggregate_Exceptions(t *testing.T) {
	ok := withLedger(bankRow(matched(1), day(1), "10"), day(1), "Rent", "10")
	lagged := withLedger(bankRow(matched(2), day(20), "10"), day(1), "Rent", "10")

	rows := []domain.TaggedRow{
		tagged(ok, expenseTag),
		tagged(ok, domain.Tag{TypeGroup: domain.GroupOther}),
		tagged(ok, domain.Tag{TypeGroup: domain.GroupInvestmentPayments, Year: "2024"}),
		tagged(ok, domain.Tag{TypeGroup: domain.GroupInvestmentPayments, SPV: "ABC SPV", Tag: "ABC SPV", YearRequiredMissing: true}),
		tagged(ok, domain.Tag{TypeGroup: domain.GroupInvestmentPayments, Originator: "XYZ", Tag: "XYZ"}),
		tagged(lagged, expenseTag),
	}

	res := aggregate.Aggregate("111", rows, aggregate.DefaultOptions())

	flagged := make([]bool, len(rows))
	for _, e := range res.Exceptions {
		for i := range rows {
			if e.TaggedRow.Tag == rows[i].Tag && e.CashDate == rows[i].CashDate && e.BankDate == rows[i].BankDate {
				flagged[i] = true
			}
		}
	}
	assert.Equal(t, []bool{false, true, true, true, false, true}, flagged)
	assert.Equal(t, 19, res.Detailed[5].Group.DateLag)
}

func TestSummarize(t *testing.T) {
	rows := []domain.TaggedRow{
		tagged(withLedger(domain.ReportRow{}, day(1), "Rent", "10"), domain.Tag{TypeGroup: domain.GroupInvestmentPayments, Tag: "X / A", Year: "2024"}),
		tagged(withLedger(domain.ReportRow{}, day(2), "Rent", "5.5"), domain.Tag{TypeGroup: domain.GroupInvestmentPayments, Tag: "X / A", Year: "2024"}),
		tagged(withLedger(domain.ReportRow{}, day(2), "Mgmt Fees", "-3"), domain.Tag{TypeGroup: domain.GroupExpense, Tag: "Mgmt Fees"}),
		tagged(bankRow(nil, day(3), "1"), domain.Tag{TypeGroup: domain.GroupOther}),
	}

	got := aggregate.Summarize(rows)
	require.Len(t, got, 3)

	assert.Equal(t, domain.GroupExpense, got[0].TypeGroup)
	assert.Equal(t, domain.GroupInvestmentPayments, got[1].TypeGroup)
	assert.True(t, got[1].Total.Equal(money("15.5")))
	assert.Equal(t, 2, got[1].Rows)
	assert.Equal(t, domain.GroupOther, got[2].TypeGroup)
	assert.True(t, got[2].Total.IsZero())
	assert.Equal(t, 1, got[2].Rows)
}

func TestSuggest(t *testing.T) {
	untagged := domain.Tag{TypeGroup: domain.GroupInvestorPayments}
	rows := []domain.TaggedRow{
		tagged(domain.ReportRow{Detail: "Gamma Partners 2024 wire"}, untagged),
		tagged(domain.ReportRow{Detail: "gamma partners fund"}, untagged),
		tagged(domain.ReportRow{Detail: "gamma partners fund"}, expenseTag),
	}

	got := aggregate.Suggest(rows)

	require.NotEmpty(t, got.Tokens)
	assert.Equal(t, aggregate.Count{Term: "GAMMA", Count: 2}, got.Tokens[0])
	assert.Equal(t, aggregate.Count{Term: "GAMMA PARTNERS", Count: 2}, got.NGrams[0])
	for _, c := range got.Tokens {
		assert.NotEqual(t, "2024", c.Term)
	}
	assert.Equal(t, len(got.NGrams), got.Len())

	recs := aggregate.SuggestionRecords("111", got)
	require.Len(t, recs, got.Len())
	assert.Len(t, recs[0], len(aggregate.SuggestionColumns))
}

func TestAuditMislabels(t *testing.T) {
	detailed := func(typ, detail string) aggregate.DetailedRow {
		return aggregate.DetailedRow{
			TaggedRow: tagged(domain.ReportRow{HasLedger: true, Type: typ, Detail: detail}, expenseTag),
			Group:     &aggregate.GroupTotals{DateLag: -1},
		}
	}

	rows := []aggregate.DetailedRow{
		detailed("Mgmt Fees", "HSBC bank charge"),
		detailed("Mgmt Fees", "wire fee"),
		detailed("Mgmt Fees", "Q1 management fees"),
		detailed("Fees and Expenses", "advisory fee Q2"),
		detailed("Fees and Expenses", "mgmt fee via SWIFT"),
		detailed("Rent", "management fee"),
	}

	got := aggregate.AuditMislabels(rows)
	require.Len(t, got, 4)

	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, aggregate.TypeFeesAndExpenses, got[0].SuggestedType)
	assert.Equal(t, 0.8, got[0].Confidence)
	assert.Equal(t, []string{"fee_words+bank_counterparty"}, got[0].Reasons)

	assert.Equal(t, 1, got[1].Row)
	assert.Equal(t, 0.6, got[1].Confidence)

	assert.Equal(t, 3, got[2].Row)
	assert.Equal(t, aggregate.TypeMgmtFees, got[2].SuggestedType)
	assert.Equal(t, 0.8, got[2].Confidence)

	assert.Equal(t, 4, got[3].Row)
	assert.Equal(t, []string{"mgmt_words"}, got[3].Reasons)

	recs := aggregate.MislabelRecords("111", got)
	assert.Equal(t, "0.80", recs[0][3])
}

func TestDetailedRecords(t *testing.T) {
	rows := []domain.TaggedRow{
		tagged(withLedger(bankRow(matched(1), day(1), "500"), day(2), "Rent", "500"), expenseTag),
	}
	res := aggregate.Aggregate("111", rows, aggregate.DefaultOptions())

	recs := aggregate.DetailedRecords("111", res.Detailed)
	require.Len(t, recs, 1)
	require.Len(t, recs[0], len(aggregate.DetailedColumns))

	col := func(name string) string {
		for i, c := range aggregate.DetailedColumns {
			if c == name {
				return recs[0][i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "1", col("Match_ID"))
	assert.Equal(t, "500.00", col("Bank_Amount"))
	assert.Equal(t, "0.00", col("Amount_Diff"))
	assert.Equal(t, "1", col("Date_Lag_Days"))
	assert.Equal(t, aggregate.StatusMatched, col("Status"))
	assert.Equal(t, "111", col("Account_ID"))
}
