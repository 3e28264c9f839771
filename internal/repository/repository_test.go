package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/report"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestCSVLedgerRepository_GetTransactions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ledger.csv",
		"Date,Amount,FundShortName,Type,Detail",
		"2024-03-01,100.00,ALPHA,Rent,row 0",
		"02/03/2024,\"1,250.50\",BETA,Investment,row 1",
		"not a date,-20,ALPHA,Mgmt Fees,row 2",
		"2024-03-04,abc,ALPHA,Rent,row 3",
		"2024-03-05,7.005,BETA,Rent,row 4",
	)

	repo := NewCSVLedgerRepository(path)
	repo.BatchSize = 2
	repo.NumWorkers = 3

	txns, err := repo.GetTransactions(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(txns) != 5 {
		t.Fatalf("Expected 5 transactions, got %d", len(txns))
	}

	for i, txn := range txns {
		if txn.Row != i {
			t.Errorf("Expected row %d at position %d, got %d", i, i, txn.Row)
		}
		if want := "row " + string(rune('0'+i)); txn.Detail != want {
			t.Errorf("Expected detail %q at position %d, got %q", want, i, txn.Detail)
		}
	}

	if want := (civil.Date{Year: 2024, Month: time.March, Day: 2}); txns[1].Date != want {
		t.Errorf("Expected day-first date %v, got %v", want, txns[1].Date)
	}
	if !txns[1].Net.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("Expected amount 1250.50, got %s", txns[1].Net)
	}
	if txns[2].Date.IsValid() {
		t.Errorf("Expected unknown date, got %v", txns[2].Date)
	}
	if !txns[3].Net.IsZero() {
		t.Errorf("Expected unreadable amount to be zero, got %s", txns[3].Net)
	}
	if !txns[4].Net.Equal(decimal.RequireFromString("7.01")) {
		t.Errorf("Expected 7.01, got %s", txns[4].Net)
	}
}

func TestCSVLedgerRepository_MissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ledger.csv",
		"Date,Amount,Type,Detail",
		"2024-03-01,100.00,Rent,x",
	)

	_, err := NewCSVLedgerRepository(path).GetTransactions(context.Background())
	if !errors.Is(err, domain.ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestCSVLedgerRepository_Cancelled(t *testing.T) {
	lines := []string{"Date,Amount,FundShortName,Type,Detail"}
	for i := 0; i < 50; i++ {
		lines = append(lines, "2024-03-01,1,ALPHA,Rent,x")
	}
	path := writeFile(t, t.TempDir(), "ledger.csv", lines...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewCSVLedgerRepository(path)
	repo.BatchSize = 1
	repo.NumWorkers = 1

	if _, err := repo.GetTransactions(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCSVBankRepository_GetTransactions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bankstmt_flows_111.csv",
		"Calculated_Date,Date from BankRef,Acct_From_Filename,Company_Name,CCY_Type,Description1A,Description1B,Description2,Debit,Credit",
		"2024-03-01,,111,ACME,USD,Opening Balance,,,,1000",
		"2024-03-01,,111,ACME,USD,TRANSFER,Rent,March,,500.00",
		",2024-03-02,,ACME,USD,PAYMENT,Fees,,25.5,",
		"2024-03-31,,111,ACME,USD,closing balance,,,,1474.50",
	)

	repo := NewCSVBankRepository(dir, []string{"OPENING BALANCE", "CLOSING BALANCE"})
	txns, err := repo.GetTransactions(context.Background(), "111")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(txns) != 2 {
		t.Fatalf("Expected 2 flow lines, got %d", len(txns))
	}

	if txns[0].Row != 0 || txns[1].Row != 1 {
		t.Errorf("Expected rows renumbered after filtering, got %d and %d", txns[0].Row, txns[1].Row)
	}
	if !txns[0].Net.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected net 500, got %s", txns[0].Net)
	}
	if want := (civil.Date{Year: 2024, Month: time.March, Day: 2}); txns[1].Date != want {
		t.Errorf("Expected BankRef fallback date %v, got %v", want, txns[1].Date)
	}
	if !txns[1].Net.Equal(decimal.RequireFromString("-25.5")) {
		t.Errorf("Expected net -25.50, got %s", txns[1].Net)
	}
	if txns[1].AccountNumber != "111" {
		t.Errorf("Expected account from the file name, got %q", txns[1].AccountNumber)
	}
}

func TestCSVBankRepository_MissingFile(t *testing.T) {
	repo := NewCSVBankRepository(t.TempDir(), nil)
	if _, err := repo.GetTransactions(context.Background(), "404"); err == nil {
		t.Error("Expected error for a missing statement")
	}
}

func TestCSVFundRepository_GetFunds(t *testing.T) {
	path := writeFile(t, t.TempDir(), "funds.csv",
		"FundShortName,Account",
		"ALPHA,111",
		"BETA,",
		",333",
	)

	funds, err := NewCSVFundRepository(path).GetFunds(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []domain.Fund{{ShortName: "ALPHA", Account: "111"}, {ShortName: "", Account: "333"}}
	if len(funds) != len(want) {
		t.Fatalf("Expected %d funds, got %d", len(want), len(funds))
	}
	for i := range want {
		if funds[i] != want[i] {
			t.Errorf("Expected %+v at %d, got %+v", want[i], i, funds[i])
		}
	}
}

func TestCSVReportRepository_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	label := domain.MatchLabel{Strategy: domain.StrategyExactSplit, ID: 7}

	rows := []domain.ReportRow{
		{
			HasBank:       true,
			BankDate:      civil.Date{Year: 2024, Month: time.March, Day: 1},
			AccountNumber: "111",
			Description1B: "Rent",
			Credit:        decimal.NewFromInt(500),
			Label:         &label,
			HasLedger:     true,
			FundShortName: "ALPHA",
			Type:          "Rent",
			CashDate:      civil.Date{Year: 2024, Month: time.March, Day: 1},
			Amount:        decimal.NewFromInt(300),
			AmountsValid:  true,
		},
		{
			Label:         &label,
			HasLedger:     true,
			FundShortName: "ALPHA",
			Type:          "Rent",
			CashDate:      civil.Date{Year: 2024, Month: time.March, Day: 1},
			Amount:        decimal.NewFromInt(200),
			AmountsValid:  true,
		},
		{
			HasBank:      true,
			BankDate:     civil.Date{Year: 2024, Month: time.March, Day: 9},
			Debit:        decimal.RequireFromString("12.34"),
			AmountsValid: true,
		},
	}

	if err := fileutil.NewCSVWriter(ReportPath(dir, "111")).WriteAll(report.Columns, report.Records(rows)); err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}

	repo := NewCSVReportRepository(dir)

	accounts, err := repo.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := accounts["111"]; !ok || len(accounts) != 1 {
		t.Errorf("Expected only account 111, got %v", accounts)
	}

	got, err := repo.GetRows(context.Background(), "111")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}

	if !got[0].HasBank || !got[0].HasLedger || got[0].MatchID() != "7" {
		t.Errorf("Expected a two-sided row in group 7, got %+v", got[0])
	}
	if got[1].HasBank {
		t.Error("Expected the split leg to have no bank side")
	}
	if !got[1].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected amount 200, got %s", got[1].Amount)
	}
	if got[2].Label != nil || got[2].HasLedger {
		t.Errorf("Expected an unreconciled bank-only row, got %+v", got[2])
	}
	if !got[2].BankAmount().Equal(decimal.RequireFromString("-12.34")) {
		t.Errorf("Expected bank amount -12.34, got %s", got[2].BankAmount())
	}
	for i, r := range got {
		if !r.AmountsValid {
			t.Errorf("Expected valid amounts on row %d", i)
		}
	}
}

func TestCSVReportRepository_InvalidAmount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cashrec_report_222.csv",
		strings.Join(report.Columns, ","),
		"2024-03-01,222,,,,,,,abc,,,,,,",
	)

	got, err := NewCSVReportRepository(dir).GetRows(context.Background(), "222")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].AmountsValid {
		t.Errorf("Expected one row with invalid amounts, got %+v", got)
	}
}

func TestLoadAccountOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "accounts.csv",
		"Name,Account_ID",
		"first,333",
		"blank,",
		"second,111",
	)

	got, err := LoadAccountOrder(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Join(got, ",") != "333,111" {
		t.Errorf("Expected [333 111], got %v", got)
	}

	bad := writeFile(t, dir, "bad.csv", "account", "1")
	if _, err := LoadAccountOrder(bad); !errors.Is(err, domain.ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}

	if _, err := LoadAccountOrder(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("Expected error for a missing accounts file")
	}
}
