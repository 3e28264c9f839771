package domain_test

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

func TestForFund(t *testing.T) {
	label := domain.MatchLabel{Strategy: domain.StrategyExact, ID: 4}
	ledger := []domain.LedgerTransaction{
		{Entry: domain.Entry{Row: 0, Net: decimal.NewFromInt(10)}, FundShortName: "ALPHA"},
		{Entry: domain.Entry{Row: 1, Net: decimal.NewFromInt(20), Label: &label}, FundShortName: "BETA"},
		{Entry: domain.Entry{Row: 2, Net: decimal.NewFromInt(30), Date: civil.Date{Year: 2024, Month: 3, Day: 1}}, FundShortName: "BETA"},
	}

	got := domain.ForFund(ledger, "BETA")

	if len(got) != 2 {
		t.Fatalf("Expected 2 BETA rows, got %d", len(got))
	}

	for i, txn := range got {
		if txn.Row != i {
			t.Errorf("Expected row %d to be renumbered to %d, got %d", i, i, txn.Row)
		}
		if txn.Reconciled() {
			t.Errorf("Expected row %d to start unreconciled", i)
		}
	}

	if ledger[1].Label == nil {
		t.Errorf("Expected source ledger to keep its label")
	}
}
