package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/logger"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// Bank statement columns
const (
	colCalculatedDate = "Calculated_Date"
	colBankRefDate    = "Date from BankRef"
	colAccount        = "Acct_From_Filename"
	colCompanyName    = "Company_Name"
	colCurrency       = "CCY_Type"
	colDescription1A  = "Description1A"
	colDescription1B  = "Description1B"
	colDescription2   = "Description2"
	colDebit          = "Debit"
	colCredit         = "Credit"
)

var bankHeaderFields = []string{
	colCalculatedDate, colDescription1A, colDescription1B, colDescription2, colDebit, colCredit,
}

// CSVBankRepository implements the BankTransactionRepository interface for
// per-account statement exports named bankstmt_flows_<account>.csv
type CSVBankRepository struct {
	Dir             string
	ExcludeKeywords []string // Description1A lines containing any of these are balance lines, not flows
}

// NewCSVBankRepository creates a new CSVBankRepository
func NewCSVBankRepository(dir string, excludeKeywords []string) *CSVBankRepository {
	return &CSVBankRepository{
		Dir:             dir,
		ExcludeKeywords: excludeKeywords,
	}
}

// StatementPath returns the statement file of an account
func (r *CSVBankRepository) StatementPath(account string) string {
	return filepath.Join(r.Dir, fmt.Sprintf("bankstmt_flows_%s.csv", account))
}

func (r *CSVBankRepository) GetTransactions(ctx context.Context, account string) ([]domain.BankTransaction, error) {
	path := r.StatementPath(account)
	reader := fileutil.NewCSVReader(path)

	// Read just the header row
	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading bank statement header: %w", err)
	}

	columns, err := newHeaderMap(header, bankHeaderFields...)
	if err != nil {
		return nil, fmt.Errorf("mapping bank statement columns: %w", err)
	}

	log := logger.FromContext(ctx).With().Str("file", path).Logger()

	exclude := make([]string, 0, len(r.ExcludeKeywords))
	for _, k := range r.ExcludeKeywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			exclude = append(exclude, k)
		}
	}

	txns := make([]domain.BankTransaction, 0)
	skipped := 0
	pos := 0

	var rowProcessorFn = func(row []string) error {
		pos++

		desc1A := columns.get(row, colDescription1A)
		if isBalanceLine(desc1A, exclude) {
			skipped++
			return nil
		}

		date := normalize.ParseDate(columns.get(row, colCalculatedDate))
		if !date.IsValid() {
			date = normalize.ParseISODate(columns.get(row, colBankRefDate))
		}
		if !date.IsValid() {
			log.Debug().Int("row", pos).Msg("bank line has no readable date")
		}

		debit, okDebit := normalize.ParseAmountStrict(columns.get(row, colDebit))
		credit, okCredit := normalize.ParseAmountStrict(columns.get(row, colCredit))
		if !okDebit || !okCredit {
			log.Debug().Int("row", pos).Msg("unreadable bank amount")
		}

		accountNumber := columns.get(row, colAccount)
		if accountNumber == "" {
			accountNumber = account
		}

		txns = append(txns, domain.BankTransaction{
			Entry: domain.Entry{
				Row:  len(txns),
				Date: date,
				Net:  normalize.Net(credit, debit),
			},
			AccountNumber: accountNumber,
			CompanyName:   columns.get(row, colCompanyName),
			Currency:      columns.get(row, colCurrency),
			Description1A: desc1A,
			Description1B: columns.get(row, colDescription1B),
			Description2:  columns.get(row, colDescription2),
			Debit:         debit,
			Credit:        credit,
		})
		return nil
	}

	// Process data row by row
	if err := reader.ReadAndProcessByRow(rowProcessorFn); err != nil {
		return nil, fmt.Errorf("processing bank transactions: %w", err)
	}

	log.Debug().Int("rows", len(txns)).Int("balance_lines", skipped).Msg("bank statement loaded")
	return txns, nil
}

func isBalanceLine(desc string, keywords []string) bool {
	desc = strings.ToUpper(desc)
	for _, k := range keywords {
		if strings.Contains(desc, k) {
			return true
		}
	}
	return false
}
