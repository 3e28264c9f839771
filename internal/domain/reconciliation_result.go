package domain

import "time"

// AuditEntry is the per-account row appended to the audit log after a run
type AuditEntry struct {
	Account               string   `json:"account"`
	Fund                  string   `json:"fund"`
	UnreconciledCashCount int      `json:"unreconciled_cash"`
	UnreconciledBankCount int      `json:"unreconciled_bank"`
	MissingBankMonths     []string `json:"missing_bank_months"` // months in the ledger with no bank statement lines
	MissingCashMonths     []string `json:"missing_cash_months"` // months on the bank statement with no ledger lines
}

// AccountResult summarises the reconciliation of one account
type AccountResult struct {
	Account     string      `json:"account"`
	Fund        string      `json:"fund"`
	LedgerRows  int         `json:"ledger_rows"`
	BankRows    int         `json:"bank_rows"`
	MatchGroups int         `json:"match_groups"`
	Stages      []StageStat `json:"stages"`
	Audit       AuditEntry  `json:"audit"`
	ReportRows  int         `json:"report_rows"`
	Err         string      `json:"error,omitempty"`
}

// Failed reports whether the account's run aborted
func (r AccountResult) Failed() bool {
	return r.Err != ""
}

// ReconciliationResult contains the result of a batch run over many accounts
type ReconciliationResult struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Accounts   []AccountResult `json:"accounts"`
}

// FailedAccounts counts accounts whose run aborted
func (r ReconciliationResult) FailedAccounts() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Failed() {
			n++
		}
	}
	return n
}
