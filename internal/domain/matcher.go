package domain

// TransactionLabeler assigns match labels to ledger and bank transactions in place
type TransactionLabeler interface {
	Label(ledger []LedgerTransaction, bank []BankTransaction) (LabelOutcome, error)
}

// StageStat records what one cascade stage did
type StageStat struct {
	Stage              string `json:"stage"`
	Groups             int    `json:"groups"`
	UnreconciledLedger int    `json:"unreconciled_ledger"`
	UnreconciledBank   int    `json:"unreconciled_bank"`
}

// LabelOutcome is the audit trail of one labelling run
type LabelOutcome struct {
	Groups []MatchGroup
	Stages []StageStat
}
