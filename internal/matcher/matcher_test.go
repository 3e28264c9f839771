package matcher_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/matcher"
)

func TestLabeler_ExactMatch(t *testing.T) {
	m := matcher.NewLabeler()

	ledger := []domain.LedgerTransaction{ledgerTxn(t, "2024-03-01", "500.00")}
	bank := []domain.BankTransaction{bankTxn(t, "2024-03-01", "500.00", "0")}

	outcome, err := m.Label(ledger, bank)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := labelText(ledger[0].Entry); got != "EXACT MATCH - 1" {
		t.Errorf("Expected ledger label 'EXACT MATCH - 1', got '%s'", got)
	}
	if got := labelText(bank[0].Entry); got != "EXACT MATCH - 1" {
		t.Errorf("Expected bank label 'EXACT MATCH - 1', got '%s'", got)
	}

	if len(outcome.Groups) != 1 {
		t.Fatalf("Expected 1 match group, got %d", len(outcome.Groups))
	}
	if len(outcome.Stages) != 11 {
		t.Errorf("Expected 11 stage stats, got %d", len(outcome.Stages))
	}
}

func TestLabeler_SplitMatch(t *testing.T) {
	m := matcher.NewLabeler()

	ledger := []domain.LedgerTransaction{
		ledgerTxn(t, "2024-03-01", "300.00"),
		ledgerTxn(t, "2024-03-01", "200.00"),
	}
	bank := []domain.BankTransaction{bankTxn(t, "2024-03-01", "500.00", "0")}

	if _, err := m.Label(ledger, bank); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i, l := range ledger {
		if got := labelText(l.Entry); got != "EXACT BUT SPLIT - 1" {
			t.Errorf("Expected ledger row %d label 'EXACT BUT SPLIT - 1', got '%s'", i, got)
		}
	}
	if got := labelText(bank[0].Entry); got != "EXACT BUT SPLIT - 1" {
		t.Errorf("Expected bank label 'EXACT BUT SPLIT - 1', got '%s'", got)
	}
}

func TestLabeler_YearOffset(t *testing.T) {
	m := matcher.NewLabeler()

	// the extra rows keep both months covered on both sides
	ledger := []domain.LedgerTransaction{
		ledgerTxn(t, "2023-03-01", "500.00"),
		ledgerTxn(t, "2024-03-15", "42.00"),
	}
	bank := []domain.BankTransaction{
		bankTxn(t, "2024-03-01", "500.00", "0"),
		bankTxn(t, "2023-03-20", "77.00", "0"),
	}

	if _, err := m.Label(ledger, bank); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "BAD DATE, CORRECT AMOUNT - Date off 1 years - 1"
	if got := labelText(ledger[0].Entry); got != want {
		t.Errorf("Expected ledger label '%s', got '%s'", want, got)
	}
	if got := labelText(bank[0].Entry); got != want {
		t.Errorf("Expected bank label '%s', got '%s'", want, got)
	}
	if ledger[1].Reconciled() || bank[1].Reconciled() {
		t.Errorf("Expected filler rows to stay unreconciled")
	}
}

func TestLabeler_UnmatchedBankRowStaysUnreconciled(t *testing.T) {
	m := matcher.NewLabeler()

	ledger := []domain.LedgerTransaction{ledgerTxn(t, "2024-03-01", "500.00")}
	bank := []domain.BankTransaction{
		bankTxn(t, "2024-03-01", "500.00", "0"),
		bankTxn(t, "2024-03-10", "0", "999.99"),
	}

	outcome, err := m.Label(ledger, bank)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if bank[1].Reconciled() {
		t.Errorf("Expected bank row without a counterpart to stay unreconciled, got '%s'", labelText(bank[1].Entry))
	}

	last := outcome.Stages[len(outcome.Stages)-1]
	if last.UnreconciledBank != 1 {
		t.Errorf("Expected 1 unreconciled bank row after the cascade, got %d", last.UnreconciledBank)
	}
}

func TestLabeler_UnknownDatesNeverMatch(t *testing.T) {
	m := matcher.NewLabeler()

	ledger := []domain.LedgerTransaction{
		{Entry: domain.Entry{Row: 0, Net: decimal.RequireFromString("10")}},
	}
	bank := []domain.BankTransaction{
		{Entry: domain.Entry{Row: 0, Net: decimal.RequireFromString("10")}},
	}

	if _, err := m.Label(ledger, bank); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if ledger[0].Reconciled() || bank[0].Reconciled() {
		t.Errorf("Expected rows with unknown dates to stay unreconciled")
	}
}

func TestLabeler_Determinism(t *testing.T) {
	ledger, bank := randomBook(t, 7)
	ledger2 := append([]domain.LedgerTransaction(nil), ledger...)
	bank2 := append([]domain.BankTransaction(nil), bank...)

	if _, err := matcher.NewLabeler().Label(ledger, bank); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := matcher.NewLabeler().Label(ledger2, bank2); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i := range ledger {
		if labelText(ledger[i].Entry) != labelText(ledger2[i].Entry) {
			t.Errorf("Expected ledger row %d to get the same label on both runs, got '%s' and '%s'",
				i, labelText(ledger[i].Entry), labelText(ledger2[i].Entry))
		}
	}
	for i := range bank {
		if labelText(bank[i].Entry) != labelText(bank2[i].Entry) {
			t.Errorf("Expected bank row %d to get the same label on both runs, got '%s' and '%s'",
				i, labelText(bank[i].Entry), labelText(bank2[i].Entry))
		}
	}
}

func TestLabeler_MonotonicConsumption(t *testing.T) {
	ledger, bank := randomBook(t, 11)

	outcome, err := matcher.NewLabeler().Label(ledger, bank)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	prevLedger, prevBank := len(ledger), len(bank)
	for _, st := range outcome.Stages {
		if st.UnreconciledLedger > prevLedger || st.UnreconciledBank > prevBank {
			t.Errorf("Expected unreconciled pools to shrink or hold at stage %s, got ledger %d->%d bank %d->%d",
				st.Stage, prevLedger, st.UnreconciledLedger, prevBank, st.UnreconciledBank)
		}
		prevLedger, prevBank = st.UnreconciledLedger, st.UnreconciledBank
	}
}

func TestLabeler_GroupInvariants(t *testing.T) {
	ledger, bank := randomBook(t, 3)

	outcome, err := matcher.NewLabeler().Label(ledger, bank)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(outcome.Groups) == 0 {
		t.Fatalf("Expected the sample book to produce some matches")
	}

	seen := make(map[int]bool)
	for _, g := range outcome.Groups {
		if seen[g.Label.ID] {
			t.Errorf("Expected match id %d to be minted once", g.Label.ID)
		}
		seen[g.Label.ID] = true

		if len(g.BankRows) != 1 {
			t.Fatalf("Expected one bank row per group, got %d for %s", len(g.BankRows), g.Label)
		}
		b := bank[g.BankRows[0]]

		sum := decimal.Zero
		for _, i := range g.LedgerRows {
			sum = sum.Add(ledger[i].Net)
			if labelText(ledger[i].Entry) != g.Label.String() {
				t.Errorf("Expected ledger row %d to carry '%s', got '%s'", i, g.Label, labelText(ledger[i].Entry))
			}
		}

		switch g.Label.Strategy {
		case domain.StrategyExact:
			l := ledger[g.LedgerRows[0]]
			if l.Date != b.Date || !l.Net.Equal(b.Net) {
				t.Errorf("Expected exact match %s to have equal date and amount", g.Label)
			}
		case domain.StrategyExactSplit, domain.StrategySplitOneLegShifted, domain.StrategySplitDateShift, domain.StrategyDailyBulk:
			if !sum.Equal(b.Net) {
				t.Errorf("Expected ledger legs of %s to sum to %s, got %s", g.Label, b.Net, sum)
			}
		case domain.StrategySplitPennyDiff:
			if !b.Net.Sub(sum).Equal(g.Label.Diff) {
				t.Errorf("Expected %s to record diff %s, got %s", g.Label, b.Net.Sub(sum), g.Label.Diff)
			}
		}
	}
}

type doubleBooking struct{}

func (doubleBooking) Name() string { return "double_booking" }

func (doubleBooking) Run(p *matcher.Pool) error {
	pass := p.Begin()
	for _, b := range pass.BankRows() {
		pass.Match(domain.MatchLabel{Strategy: domain.StrategyExact}, b)
		pass.Match(domain.MatchLabel{Strategy: domain.StrategyExact}, b)
	}
	return pass.Commit()
}

func TestLabeler_RefusesRelabel(t *testing.T) {
	m := matcher.NewLabeler(doubleBooking{})

	bank := []domain.BankTransaction{bankTxn(t, "2024-03-01", "1", "0")}

	_, err := m.Label(nil, bank)
	if !errors.Is(err, domain.ErrRelabel) {
		t.Fatalf("Expected ErrRelabel, got %v", err)
	}

	if got := labelText(bank[0].Entry); got != "EXACT MATCH - 1" {
		t.Errorf("Expected first label to stick, got '%s'", got)
	}
}

// randomBook builds a reproducible ledger/bank pair over two months with
// enough repeated amounts to exercise every stage.
func randomBook(t *testing.T, seed int64) ([]domain.LedgerTransaction, []domain.BankTransaction) {
	t.Helper()

	r := rand.New(rand.NewSource(seed))
	amounts := []string{"100.00", "250.50", "40.00", "60.00", "99.99", "150.50", "-75.25", "1000.00"}

	pick := func() (civil.Date, string) {
		d := civil.Date{Year: 2024, Month: time.Month(3 + r.Intn(2)), Day: 1 + r.Intn(20)}
		return d, amounts[r.Intn(len(amounts))]
	}

	ledger := make([]domain.LedgerTransaction, 0, 60)
	for i := 0; i < 60; i++ {
		d, a := pick()
		ledger = append(ledger, domain.LedgerTransaction{
			Entry: domain.Entry{Row: i, Date: d, Net: decimal.RequireFromString(a)},
		})
	}

	bank := make([]domain.BankTransaction, 0, 40)
	for i := 0; i < 40; i++ {
		d, a := pick()
		if r.Intn(4) == 0 {
			a = decimal.RequireFromString(a).Add(decimal.RequireFromString(amounts[r.Intn(len(amounts))])).String()
		}
		bank = append(bank, domain.BankTransaction{
			Entry: domain.Entry{Row: i, Date: d, Net: decimal.RequireFromString(a)},
		})
	}

	return ledger, bank
}

func parseDate(t *testing.T, s string) civil.Date {
	t.Helper()

	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("Failed to parse date %s: %v", s, err)
	}
	return d
}

func ledgerTxn(t *testing.T, date, amount string) domain.LedgerTransaction {
	t.Helper()

	return domain.LedgerTransaction{
		Entry: domain.Entry{
			Date: parseDate(t, date),
			Net:  decimal.RequireFromString(amount),
		},
	}
}

func bankTxn(t *testing.T, date, credit, debit string) domain.BankTransaction {
	t.Helper()

	c := decimal.RequireFromString(credit)
	d := decimal.RequireFromString(debit)
	return domain.BankTransaction{
		Entry: domain.Entry{
			Date: parseDate(t, date),
			Net:  c.Sub(d),
		},
		Credit: c,
		Debit:  d,
	}
}

func labelText(e domain.Entry) string {
	if e.Label == nil {
		return ""
	}
	return e.Label.String()
}
