package domain

// LedgerTransaction represents an expected cash movement from the fund's cash rec ledger
type LedgerTransaction struct {
	Entry
	FundShortName string
	Type          string
	Detail        string
}

// Fund pairs a fund's short name with the bank account its statements are filed under
type Fund struct {
	ShortName string
	Account   string
}

// ForFund returns the ledger rows booked against the given fund, renumbered in order
func ForFund(ledger []LedgerTransaction, fund string) []LedgerTransaction {
	out := make([]LedgerTransaction, 0)
	for _, txn := range ledger {
		if txn.FundShortName != fund {
			continue
		}

		txn.Row = len(out)
		txn.Label = nil
		out = append(out, txn)
	}

	return out
}
