package aggregate

import (
	"regexp"
	"strings"
)

// Ledger types the mislabel audit compares
const (
	TypeMgmtFees        = "Mgmt Fees"
	TypeFeesAndExpenses = "Fees and Expenses"
)

var (
	feeWords  = regexp.MustCompile(`(?i)\b(FEE|FEES|EXPENSE|CHARGE|BANK CHARGE|SWIFT)\b`)
	bankWords = regexp.MustCompile(`(?i)\b(HSBC|BARCLAYS|CITI|FRB|BONY|JPM|JPMORGAN|J\.P\. MORGAN|BNP|DEUTSCHE|TRANSFER|SWIFT|CHAPS|BACS)\b`)
	mgmtWords = regexp.MustCompile(`(?i)\b(MANAGEMENT\s+FEES?|MGMT\s*FEES?|ADVIS(OR|ORY)\s+FEES?)\b`)
)

// Mislabel flags a row whose text suggests the other of the two fee types
type Mislabel struct {
	Row           int // position in the detailed rows
	CurrentType   string
	SuggestedType string
	Confidence    float64
	Reasons       []string
	DetailedRow
}

// AuditMislabels looks for "Mgmt Fees" and "Fees and Expenses" rows whose
// descriptions read like the other type
func AuditMislabels(rows []DetailedRow) []Mislabel {
	out := make([]Mislabel, 0)

	for i, r := range rows {
		typ := r.Type
		if typ != TypeMgmtFees && typ != TypeFeesAndExpenses {
			continue
		}

		text := strings.Join([]string{r.Description1B, r.Description2, r.Detail}, " | ")
		fee := feeWords.MatchString(text)
		mgmt := mgmtWords.MatchString(text)
		bank := bankWords.MatchString(text)

		m := Mislabel{Row: i, CurrentType: typ, DetailedRow: r}
		switch {
		case typ == TypeMgmtFees && fee && bank && !mgmt:
			m.SuggestedType, m.Confidence, m.Reasons = TypeFeesAndExpenses, 0.8, []string{"fee_words+bank_counterparty"}
		case typ == TypeMgmtFees && fee && !mgmt:
			m.SuggestedType, m.Confidence, m.Reasons = TypeFeesAndExpenses, 0.6, []string{"fee_words_no_mgmt"}
		case typ == TypeFeesAndExpenses && mgmt && !bank:
			m.SuggestedType, m.Confidence, m.Reasons = TypeMgmtFees, 0.8, []string{"mgmt_words_no_banky"}
		case typ == TypeFeesAndExpenses && mgmt:
			m.SuggestedType, m.Confidence, m.Reasons = TypeMgmtFees, 0.6, []string{"mgmt_words"}
		default:
			continue
		}

		out = append(out, m)
	}

	return out
}
