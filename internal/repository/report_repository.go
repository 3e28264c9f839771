package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
	"github.com/tirasundara/cashrec-reconciliation/internal/report"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

const (
	reportPrefix = "cashrec_report_"
	reportSuffix = ".csv"

	colAccountID = "account_id"
)

// CSVReportRepository implements the ReportRepository interface for the
// side-by-side reports written by the reconcile command
type CSVReportRepository struct {
	Dir string
}

// NewCSVReportRepository creates a new CSVReportRepository
func NewCSVReportRepository(dir string) *CSVReportRepository {
	return &CSVReportRepository{Dir: dir}
}

// ReportPath returns the report file of an account
func ReportPath(dir, account string) string {
	return filepath.Join(dir, reportPrefix+account+reportSuffix)
}

// Accounts maps every account with a report in Dir to its file
func (r *CSVReportRepository) Accounts(_ context.Context) (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.Dir, reportPrefix+"*"+reportSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	accounts := make(map[string]string, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		account := strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), reportSuffix)
		if account != "" {
			accounts[account] = path
		}
	}
	return accounts, nil
}

// GetRows reads an account's report back into rows. Labels are parsed back
// into match labels; amount cells that are not numbers clear AmountsValid.
func (r *CSVReportRepository) GetRows(_ context.Context, account string) ([]domain.ReportRow, error) {
	reader := fileutil.NewCSVReader(ReportPath(r.Dir, account))

	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading report header: %w", err)
	}

	columns, err := newHeaderMap(header, report.Columns...)
	if err != nil {
		return nil, fmt.Errorf("mapping report columns: %w", err)
	}

	rows := make([]domain.ReportRow, 0)
	err = reader.ReadAndProcessByRow(func(rec []string) error {
		rows = append(rows, parseReportRow(columns, rec))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing report rows: %w", err)
	}

	return rows, nil
}

func parseReportRow(columns headerMap, rec []string) domain.ReportRow {
	get := func(col string) string { return columns.get(rec, col) }

	row := domain.ReportRow{AmountsValid: true}

	for _, col := range report.BankColumns {
		if get(col) != "" {
			row.HasBank = true
			break
		}
	}
	if row.HasBank {
		var okDebit, okCredit bool
		row.BankDate = normalize.ParseDate(get(report.ColCalculatedDate))
		row.AccountNumber = get(report.ColAccount)
		row.CompanyName = get(report.ColCompanyName)
		row.Currency = get(report.ColCurrency)
		row.Description1A = get(report.ColDescription1A)
		row.Description1B = get(report.ColDescription1B)
		row.Description2 = get(report.ColDescription2)
		row.Debit, okDebit = normalize.ParseAmountStrict(get(report.ColDebit))
		row.Credit, okCredit = normalize.ParseAmountStrict(get(report.ColCredit))
		row.AmountsValid = okDebit && okCredit
	}

	if label, ok := domain.ParseMatchLabel(get(report.ColReconciled)); ok {
		row.Label = &label
	}

	for _, col := range report.LedgerColumns {
		if get(col) != "" {
			row.HasLedger = true
			break
		}
	}
	if row.HasLedger {
		var ok bool
		row.FundShortName = get(report.ColFundShortName)
		row.Type = get(report.ColType)
		row.CashDate = normalize.ParseDate(get(report.ColCashDate))
		row.Detail = get(report.ColDetail)
		row.Amount, ok = normalize.ParseAmountStrict(get(report.ColAmount))
		row.AmountsValid = row.AmountsValid && ok
	}

	return row
}

// LoadAccountOrder reads the account_id column of an accounts file, in order
func LoadAccountOrder(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("accounts file: %w", err)
	}

	reader := fileutil.NewCSVReader(path)
	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading accounts file header: %w", err)
	}

	columns, err := newHeaderMap(header, colAccountID)
	if err != nil {
		return nil, fmt.Errorf("mapping accounts file columns: %w", err)
	}

	accounts := make([]string, 0)
	err = reader.ReadAndProcessByRow(func(row []string) error {
		if a := columns.get(row, colAccountID); a != "" {
			accounts = append(accounts, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing accounts file: %w", err)
	}

	return accounts, nil
}
