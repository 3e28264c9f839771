package report

import (
	"encoding/json"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// OutputFormatter defines the interface for formatting batch run results
type OutputFormatter interface {
	Format(result domain.ReconciliationResult) ([]byte, error)
	FileExtension() string
}

// JSONFormatter formats batch run results as JSON
type JSONFormatter struct {
	PrettyPrint bool
}

func NewJSONFormatter(prettyPrint bool) *JSONFormatter {
	return &JSONFormatter{
		PrettyPrint: prettyPrint,
	}
}

// Format implements the OutputFormatter interface for JSON
func (f *JSONFormatter) Format(result domain.ReconciliationResult) ([]byte, error) {
	summary := newRunSummary(result)
	if f.PrettyPrint {
		return json.MarshalIndent(summary, "", "  ")
	}
	return json.Marshal(summary)
}

func (f *JSONFormatter) FileExtension() string {
	return "json"
}

type runSummary struct {
	domain.ReconciliationResult
	AccountCount int `json:"account_count"`
	FailedCount  int `json:"failed_count"`
}

func newRunSummary(result domain.ReconciliationResult) runSummary {
	return runSummary{
		ReconciliationResult: result,
		AccountCount:         len(result.Accounts),
		FailedCount:          result.FailedAccounts(),
	}
}
