package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// Drivers accepted by Open
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

// Header is the column layout of the CSV audit log
var Header = []string{
	"Account Number",
	"Fund Short Name",
	"Unreconciled Cash Lines",
	"Unreconciled Bank Lines",
	"Number of Missing Bank Statements",
	"Number of Missing Cash Rec Months",
	"List of Missing Bank Statements",
	"List of Missing Cash Rec Months",
}

const listSeparator = ", "

// Open returns the audit log for the configured driver
func Open(driver, dsn string) (domain.AuditLog, error) {
	switch driver {
	case DriverCSV, "":
		return NewCSVLog(dsn), nil
	case DriverSQLite:
		return NewSQLiteLog(dsn)
	}
	return nil, fmt.Errorf("unknown audit driver %q", driver)
}

// Record renders an entry as one audit-log row
func Record(e domain.AuditEntry) []string {
	return []string{
		e.Account,
		e.Fund,
		strconv.Itoa(e.UnreconciledCashCount),
		strconv.Itoa(e.UnreconciledBankCount),
		strconv.Itoa(len(e.MissingBankMonths)),
		strconv.Itoa(len(e.MissingCashMonths)),
		strings.Join(e.MissingBankMonths, listSeparator),
		strings.Join(e.MissingCashMonths, listSeparator),
	}
}

// CSVLog appends entries to a CSV file, writing the header only when the
// file does not exist yet. Appends are serialised.
type CSVLog struct {
	mu     sync.Mutex
	writer *fileutil.CSVWriter
}

// NewCSVLog creates a CSVLog writing to path
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{
		writer: fileutil.NewCSVWriter(path),
	}
}

// Append implements the AuditLog interface
func (l *CSVLog) Append(ctx context.Context, entry domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Append(Header, Record(entry)); err != nil {
		return fmt.Errorf("appending audit row for %s: %w", entry.Account, err)
	}
	return nil
}

// Close implements the AuditLog interface
func (l *CSVLog) Close() error {
	return nil
}

// SQLiteLog keeps the audit log in a SQLite table
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLiteLog opens (or creates) the database at dsn and ensures the schema exists
func NewSQLiteLog(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account TEXT NOT NULL,
			fund TEXT NOT NULL,
			unreconciled_cash INTEGER NOT NULL,
			unreconciled_bank INTEGER NOT NULL,
			missing_bank_months TEXT NOT NULL,
			missing_cash_months TEXT NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

// Append implements the AuditLog interface
func (l *SQLiteLog) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_log (account, fund, unreconciled_cash, unreconciled_bank, missing_bank_months, missing_cash_months)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Account,
		entry.Fund,
		entry.UnreconciledCashCount,
		entry.UnreconciledBankCount,
		strings.Join(entry.MissingBankMonths, listSeparator),
		strings.Join(entry.MissingCashMonths, listSeparator),
	)
	if err != nil {
		return fmt.Errorf("insert audit row for %s: %w", entry.Account, err)
	}
	return nil
}

// Entries returns every logged entry in insertion order
func (l *SQLiteLog) Entries(ctx context.Context) ([]domain.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT account, fund, unreconciled_cash, unreconciled_bank, missing_bank_months, missing_cash_months
		FROM audit_log
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e          domain.AuditEntry
			bankMonths string
			cashMonths string
		)
		if err := rows.Scan(&e.Account, &e.Fund, &e.UnreconciledCashCount, &e.UnreconciledBankCount, &bankMonths, &cashMonths); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.MissingBankMonths = splitList(bankMonths)
		e.MissingCashMonths = splitList(cashMonths)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close implements the AuditLog interface
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, listSeparator)
}
