package domain

// Type groups, the coarse business categories a transaction type falls into
const (
	GroupInvestorPayments   = "Investor payments"
	GroupInvestmentPayments = "Investment payments"
	GroupMurabaha           = "Murabaha"
	GroupExpense            = "Expense"
	GroupOther              = "Other"
)

// TypeGroup maps a set of ledger transaction types onto a business category
type TypeGroup struct {
	Name  string   `mapstructure:"name"`
	Types []string `mapstructure:"types"`
}

// DefaultTypeGroups returns the standard grouping of ledger transaction types
func DefaultTypeGroups() []TypeGroup {
	return []TypeGroup{
		{Name: GroupInvestorPayments, Types: []string{"Capital Paydown", "Subscription", "Distribution"}},
		{Name: GroupInvestmentPayments, Types: []string{"Prepayment", "Investment", "Rent"}},
		{Name: GroupMurabaha, Types: []string{"Murabaha"}},
		{Name: GroupExpense, Types: []string{"Mgmt Fees", "Fees and Expenses"}},
		{Name: GroupOther, Types: []string{}},
	}
}

// SPVRule describes a special-purpose vehicle owned by an originator
type SPVRule struct {
	Name          string
	Synonyms      []string
	YearsRequired bool // lines for this SPV must carry a contract year
}

// OriginatorRule describes an originator and the SPVs it owns
type OriginatorRule struct {
	Name     string
	Synonyms []string
	SPVs     []SPVRule
}

// TagRule is one entry of a priority-ordered synonym table
type TagRule struct {
	Tag           string
	Synonyms      []string
	Priority      int
	YearsRequired bool
}

// RuleSet is the tagging configuration for a run. It is built once and
// only read afterwards; slices are in priority order.
type RuleSet struct {
	TypeGroups      []TypeGroup
	PriorityPhrases []string
	SPVPriority     []string
	Originators     []OriginatorRule
	InvestorTags    []TagRule
	ExpenseTags     map[string][]TagRule // keyed by exact transaction type
}
