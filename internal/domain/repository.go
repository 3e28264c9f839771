package domain

import "context"

// LedgerRepository defines the interface for accessing the cash rec ledger
type LedgerRepository interface {
	// GetTransactions loads every ledger row, all funds, in file order
	GetTransactions(ctx context.Context) ([]LedgerTransaction, error)
}

// BankTransactionRepository defines the interface for accessing bank statements
type BankTransactionRepository interface {
	// GetTransactions loads the statement lines filed under the given account, in file order
	GetTransactions(ctx context.Context, account string) ([]BankTransaction, error)
}

// FundRepository lists the funds to reconcile, in batch order
type FundRepository interface {
	GetFunds(ctx context.Context) ([]Fund, error)
}

// ReportRepository reads previously exported side-by-side reports
type ReportRepository interface {
	// Accounts maps account id to the report it was exported to
	Accounts(ctx context.Context) (map[string]string, error)

	// GetRows loads the report rows of one account
	GetRows(ctx context.Context, account string) ([]ReportRow, error)
}

// AuditLog is an append-only sink for per-account audit entries.
// Implementations must be safe for concurrent use.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Close() error
}
