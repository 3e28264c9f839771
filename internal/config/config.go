// Package config loads cashrec settings from defaults, an optional YAML file
// and CASHREC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// Audit log drivers
const (
	AuditDriverCSV    = "csv"
	AuditDriverSQLite = "sqlite"
)

// Config is the full run configuration. It is loaded once and passed by value.
type Config struct {
	Matching MatchingConfig `mapstructure:"matching"`
	Bank     BankConfig     `mapstructure:"bank"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Tagging  TaggingConfig  `mapstructure:"tagging"`
	Log      LogConfig      `mapstructure:"log"`
	Workers  int            `mapstructure:"workers"`
}

// MatchingConfig tunes the matching cascade and the aggregation status rules
type MatchingConfig struct {
	Tolerance       float64 `mapstructure:"tolerance"`
	MaxDateLagDays  int     `mapstructure:"max_date_lag_days"`
	YearOffsets     []int   `mapstructure:"year_offsets"`
	MaxDayOffset    int     `mapstructure:"max_day_offset"`
	MaxPennyCents   int     `mapstructure:"max_penny_cents"`
	SplitWindowDays int     `mapstructure:"split_window_days"`
	SplitShiftDays  int     `mapstructure:"split_shift_days"`
	MaxMonthOffset  int     `mapstructure:"max_month_offset"`
}

// BankConfig controls bank statement loading
type BankConfig struct {
	ExcludeKeywords []string `mapstructure:"exclude_keywords"`
}

// PathsConfig locates inputs and outputs
type PathsConfig struct {
	LedgerFile   string `mapstructure:"ledger_file"`
	FundList     string `mapstructure:"fund_list"`
	BankDir      string `mapstructure:"bank_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	RulesDir     string `mapstructure:"rules_dir"`
	AccountsFile string `mapstructure:"accounts_file"`
	ReportDir    string `mapstructure:"report_dir"`
	TagOutputDir string `mapstructure:"tag_output_dir"`
	AuditLog     string `mapstructure:"audit_log"`
}

// AuditConfig selects where audit entries are appended
type AuditConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// TaggingConfig tunes the tag flow
type TaggingConfig struct {
	FuzzyCutoff float64            `mapstructure:"fuzzy_cutoff"`
	FuzzyRetry  float64            `mapstructure:"fuzzy_retry"`
	ReviewBelow float64            `mapstructure:"review_below"`
	TypeGroups  []domain.TypeGroup `mapstructure:"type_groups"`
}

// LogConfig controls logger output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration. An empty path searches for cashrec.yaml in the
// working directory and carries on with defaults when there is none.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CASHREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("cashrec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("matching.tolerance", 0.01)
	v.SetDefault("matching.max_date_lag_days", 5)
	v.SetDefault("matching.year_offsets", []int{1, 2, 10})
	v.SetDefault("matching.max_day_offset", 27)
	v.SetDefault("matching.max_penny_cents", 99)
	v.SetDefault("matching.split_window_days", 7)
	v.SetDefault("matching.split_shift_days", 3)
	v.SetDefault("matching.max_month_offset", 3)

	v.SetDefault("bank.exclude_keywords", []string{
		"OPENING BALANCE",
		"CLOSING BALANCE",
		"BALANCE CARRIED FORWARD",
		"BALANCE BROUGHT FORWARD",
	})

	v.SetDefault("paths.ledger_file", "data/FullCashFlows.csv")
	v.SetDefault("paths.fund_list", "data/USDFund_Accountlist.csv")
	v.SetDefault("paths.bank_dir", "data")
	v.SetDefault("paths.output_dir", "output")
	v.SetDefault("paths.rules_dir", "rules")
	v.SetDefault("paths.accounts_file", "rules/accounts_order.csv")
	v.SetDefault("paths.report_dir", "output")
	v.SetDefault("paths.tag_output_dir", "output/tagging")
	v.SetDefault("paths.audit_log", "audit_log.csv")

	v.SetDefault("audit.driver", AuditDriverCSV)
	v.SetDefault("audit.dsn", "audit_log.db")

	v.SetDefault("tagging.fuzzy_cutoff", 60)
	v.SetDefault("tagging.fuzzy_retry", 90)
	v.SetDefault("tagging.review_below", 85)

	groups := make([]map[string]interface{}, 0)
	for _, g := range domain.DefaultTypeGroups() {
		groups = append(groups, map[string]interface{}{"name": g.Name, "types": g.Types})
	}
	v.SetDefault("tagging.type_groups", groups)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("workers", 1)
}

// Validate checks value ranges
func (c Config) Validate() error {
	m := c.Matching
	switch {
	case m.Tolerance < 0:
		return fmt.Errorf("matching.tolerance must not be negative, got %v", m.Tolerance)
	case m.MaxDateLagDays < 0:
		return fmt.Errorf("matching.max_date_lag_days must not be negative, got %d", m.MaxDateLagDays)
	case m.MaxDayOffset < 0 || m.MaxPennyCents < 0 || m.SplitWindowDays < 0 || m.SplitShiftDays < 0 || m.MaxMonthOffset < 0:
		return errors.New("matching windows must not be negative")
	}
	for _, y := range m.YearOffsets {
		if y <= 0 {
			return fmt.Errorf("matching.year_offsets must be positive, got %d", y)
		}
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.Audit.Driver != AuditDriverCSV && c.Audit.Driver != AuditDriverSQLite {
		return fmt.Errorf("audit.driver must be %q or %q, got %q", AuditDriverCSV, AuditDriverSQLite, c.Audit.Driver)
	}

	t := c.Tagging
	for name, score := range map[string]float64{
		"tagging.fuzzy_cutoff": t.FuzzyCutoff,
		"tagging.fuzzy_retry":  t.FuzzyRetry,
		"tagging.review_below": t.ReviewBelow,
	} {
		if score < 0 || score > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", name, score)
		}
	}

	return nil
}
