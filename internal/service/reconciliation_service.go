package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tirasundara/cashrec-reconciliation/internal/audit"
	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/logger"
	"github.com/tirasundara/cashrec-reconciliation/internal/report"
	"github.com/tirasundara/cashrec-reconciliation/internal/repository"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// ReconciliationService orchestrates the reconciliation process
type ReconciliationService struct {
	ledgerRepo domain.LedgerRepository
	bankRepo   domain.BankTransactionRepository
	fundRepo   domain.FundRepository
	labeler    domain.TransactionLabeler
	auditLog   domain.AuditLog
	outputDir  string
	workers    int
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	ledgerRepo domain.LedgerRepository,
	bankRepo domain.BankTransactionRepository,
	fundRepo domain.FundRepository,
	labeler domain.TransactionLabeler,
	auditLog domain.AuditLog,
	outputDir string,
	workers int,
) *ReconciliationService {
	return &ReconciliationService{
		ledgerRepo: ledgerRepo,
		bankRepo:   bankRepo,
		fundRepo:   fundRepo,
		labeler:    labeler,
		auditLog:   auditLog,
		outputDir:  outputDir,
		workers:    max(workers, 1),
	}
}

// Run reconciles every fund in the fund list. The ledger is read once and
// shared. A fund that fails is recorded in the result and the batch moves
// on; only a failure to read the shared inputs aborts the run.
func (s *ReconciliationService) Run(ctx context.Context) (domain.ReconciliationResult, error) {
	result := domain.ReconciliationResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	log := logger.FromContext(ctx).With().Str("run_id", result.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	funds, err := s.fundRepo.GetFunds(ctx)
	if err != nil {
		return result, fmt.Errorf("fetching fund list: %w", err)
	}

	ledger, err := s.ledgerRepo.GetTransactions(ctx)
	if err != nil {
		return result, fmt.Errorf("fetching ledger transactions: %w", err)
	}

	log.Info().Int("funds", len(funds)).Int("ledger_rows", len(ledger)).Int("workers", s.workers).Msg("reconciliation started")

	result.Accounts = make([]domain.AccountResult, len(funds))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, fund := range funds {
		g.Go(func() error {
			accountLog := log.With().Str("account", fund.Account).Str("fund", fund.ShortName).Logger()

			res, err := s.ReconcileAccount(logger.WithContext(ctx, accountLog), ledger, fund)
			if err != nil {
				accountLog.Error().Err(err).Msg("account reconciliation failed")
				res.Err = err.Error()
			}
			result.Accounts[i] = res
			return nil
		})
	}
	_ = g.Wait()

	result.FinishedAt = time.Now()

	log.Info().
		Int("accounts", len(result.Accounts)).
		Int("failed", result.FailedAccounts()).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("reconciliation finished")

	return result, nil
}

// ReconcileAccount runs the matching cascade for one fund against its bank
// statement, writes the account's exports and appends its audit entry.
// ledger is the full multi-fund ledger and is not modified.
func (s *ReconciliationService) ReconcileAccount(ctx context.Context, ledger []domain.LedgerTransaction, fund domain.Fund) (domain.AccountResult, error) {
	res := domain.AccountResult{Account: fund.Account, Fund: fund.ShortName}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if strings.TrimSpace(fund.ShortName) == "" {
		return res, fmt.Errorf("account %s: %w", fund.Account, domain.ErrUnknownFund)
	}

	log := logger.FromContext(ctx)

	cash := domain.ForFund(ledger, fund.ShortName)

	bank, err := s.bankRepo.GetTransactions(ctx, fund.Account)
	if err != nil {
		return res, fmt.Errorf("fetching bank transactions: %w", err)
	}

	res.LedgerRows = len(cash)
	res.BankRows = len(bank)

	if len(cash) == 0 && len(bank) == 0 {
		return res, domain.ErrNoTransactions
	}

	outcome, err := s.labeler.Label(cash, bank)
	if err != nil {
		return res, fmt.Errorf("labelling transactions: %w", err)
	}
	res.MatchGroups = len(outcome.Groups)
	res.Stages = outcome.Stages

	for _, st := range outcome.Stages {
		log.Info().
			Str("stage", st.Stage).
			Int("groups", st.Groups).
			Int("unreconciled_ledger", st.UnreconciledLedger).
			Int("unreconciled_bank", st.UnreconciledBank).
			Msg("stage finished")
	}

	res.Audit = audit.Audit(fund.Account, fund.ShortName, cash, bank)

	rows := report.Assemble(cash, bank)
	res.ReportRows = len(rows)

	if err := s.writeExports(fund.Account, cash, bank, rows); err != nil {
		return res, err
	}

	if err := s.auditLog.Append(ctx, res.Audit); err != nil {
		return res, fmt.Errorf("appending audit entry: %w", err)
	}

	log.Info().
		Int("match_groups", res.MatchGroups).
		Int("unreconciled_cash", res.Audit.UnreconciledCashCount).
		Int("unreconciled_bank", res.Audit.UnreconciledBankCount).
		Msg("account reconciled")

	return res, nil
}

func (s *ReconciliationService) writeExports(account string, cash []domain.LedgerTransaction, bank []domain.BankTransaction, rows []domain.ReportRow) error {
	exports := []struct {
		path   string
		header []string
		rows   [][]string
	}{
		{filepath.Join(s.outputDir, "reconciled_bank_"+account+".csv"), report.ReconciledBankColumns, report.BankRecords(bank)},
		{filepath.Join(s.outputDir, "reconciled_cash_"+account+".csv"), report.ReconciledCashColumns, report.CashRecords(cash)},
		{repository.ReportPath(s.outputDir, account), report.Columns, report.Records(rows)},
	}

	var errs []error
	for _, e := range exports {
		if err := fileutil.NewCSVWriter(e.path).WriteAll(e.header, e.rows); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", filepath.Base(e.path), err))
		}
	}
	return errors.Join(errs...)
}
