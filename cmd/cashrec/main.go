package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tirasundara/cashrec-reconciliation/internal/aggregate"
	"github.com/tirasundara/cashrec-reconciliation/internal/audit"
	"github.com/tirasundara/cashrec-reconciliation/internal/config"
	"github.com/tirasundara/cashrec-reconciliation/internal/logger"
	"github.com/tirasundara/cashrec-reconciliation/internal/matcher"
	"github.com/tirasundara/cashrec-reconciliation/internal/report"
	"github.com/tirasundara/cashrec-reconciliation/internal/repository"
	"github.com/tirasundara/cashrec-reconciliation/internal/rules"
	"github.com/tirasundara/cashrec-reconciliation/internal/service"
	"github.com/tirasundara/cashrec-reconciliation/internal/tagger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reconcile":
		runReconcile(os.Args[2:])
	case "tag":
		runTag(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Cash rec reconciliation")
	fmt.Println("\nUsage:")
	fmt.Println("  cashrec <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  reconcile  Match every fund's cash rec ledger against its bank statement")
	fmt.Println("  tag        Tag reconciled reports and write the review tables")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cashrec <command> -h' for more information on a command.")
}

func runReconcile(args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default ./cashrec.yaml if present)")
	outputFile := fs.String("output", "", "Path to run summary file (if empty, writes to stdout)")
	prettyPrint := fs.Bool("pretty", true, "Pretty print JSON output")
	fs.Parse(args)

	cfg, log := setup(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	dsn := cfg.Paths.AuditLog
	if cfg.Audit.Driver == config.AuditDriverSQLite {
		dsn = cfg.Audit.DSN
	}
	auditLog, err := audit.Open(cfg.Audit.Driver, dsn)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to open audit log: %v", err))
	}
	defer auditLog.Close()

	ledgerRepo := repository.NewCSVLedgerRepository(cfg.Paths.LedgerFile)
	bankRepo := repository.NewCSVBankRepository(cfg.Paths.BankDir, cfg.Bank.ExcludeKeywords)
	fundRepo := repository.NewCSVFundRepository(cfg.Paths.FundList)

	labeler := matcher.NewLabeler(matcher.DefaultStages(matcherOptions(cfg))...)

	reconciliationService := service.NewReconciliationService(
		ledgerRepo, bankRepo, fundRepo, labeler, auditLog, cfg.Paths.OutputDir, cfg.Workers,
	)

	result, err := reconciliationService.Run(ctx)
	if err != nil {
		exitWithError(fmt.Sprintf("Reconciliation failed: %v", err))
	}

	var formatter report.OutputFormatter = report.NewJSONFormatter(*prettyPrint)
	output, err := formatter.Format(result)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to format output: %v", err))
	}

	writeOutput(*outputFile, formatter.FileExtension(), output)
}

func runTag(args []string) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default ./cashrec.yaml if present)")
	includeUnlisted := fs.Bool("include-unlisted", false, "Also tag reports missing from the accounts file, after the listed ones")
	strictOrder := fs.Bool("strict-order", false, "Abort if a listed account has no report")
	outputFile := fs.String("output", "", "Path to run summary file (if empty, writes to stdout)")
	prettyPrint := fs.Bool("pretty", true, "Pretty print JSON output")
	fs.Parse(args)

	cfg, log := setup(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	ruleSet, err := rules.Load(cfg.Paths.RulesDir, cfg.Tagging.TypeGroups)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to load rules: %v", err))
	}
	log.Info().Str("dir", cfg.Paths.RulesDir).Int("originators", len(ruleSet.Originators)).Msg("rules loaded")

	reports := repository.NewCSVReportRepository(cfg.Paths.ReportDir)
	available, err := reports.Accounts(ctx)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to list reports: %v", err))
	}
	if len(available) == 0 {
		log.Warn().Str("dir", cfg.Paths.ReportDir).Msg("no cashrec_report_*.csv files found")
		return
	}

	ordered, err := repository.LoadAccountOrder(cfg.Paths.AccountsFile)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to load accounts file: %v", err))
	}

	queue, missing, err := service.BuildQueue(ordered, available, *includeUnlisted, *strictOrder)
	if err != nil {
		exitWithError(err.Error())
	}
	if len(missing) > 0 {
		log.Warn().Strs("accounts", missing).Msg("listed accounts have no report")
	}

	taggingService := service.NewTaggingService(reports, ruleSet, aggregateOptions(cfg), fuzzyOptions(cfg), cfg.Paths.TagOutputDir)
	results := taggingService.Run(ctx, queue)

	var output []byte
	if *prettyPrint {
		output, err = json.MarshalIndent(results, "", "  ")
	} else {
		output, err = json.Marshal(results)
	}
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to format output: %v", err))
	}

	writeOutput(*outputFile, "json", output)
}

// setup loads the configuration and builds the logger. Logs go to stderr
// so stdout only carries the run summary.
func setup(configPath string) (config.Config, zerolog.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		exitWithError(err.Error())
	}

	return cfg, log
}

func matcherOptions(cfg config.Config) matcher.Options {
	m := cfg.Matching
	return matcher.Options{
		YearOffsets:     m.YearOffsets,
		MaxDayOffset:    m.MaxDayOffset,
		MaxPennyCents:   m.MaxPennyCents,
		SplitWindowDays: m.SplitWindowDays,
		SplitShiftDays:  m.SplitShiftDays,
		MaxMonthOffset:  m.MaxMonthOffset,
	}
}

func aggregateOptions(cfg config.Config) aggregate.Options {
	return aggregate.Options{
		Tolerance:      decimal.NewFromFloat(cfg.Matching.Tolerance),
		MaxDateLagDays: cfg.Matching.MaxDateLagDays,
	}
}

func fuzzyOptions(cfg config.Config) tagger.FuzzyOptions {
	return tagger.FuzzyOptions{
		Cutoff:      cfg.Tagging.FuzzyCutoff,
		Retry:       cfg.Tagging.FuzzyRetry,
		ReviewBelow: cfg.Tagging.ReviewBelow,
	}
}

func writeOutput(outputFile, ext string, output []byte) {
	if outputFile == "" {
		// Write output to stdout
		fmt.Println(string(output))
		return
	}

	// If no extension is provided, add the formatter's default extension
	if !strings.Contains(outputFile, ".") {
		outputFile = fmt.Sprintf("%s.%s", outputFile, ext)
	}

	if err := os.WriteFile(outputFile, output, 0644); err != nil {
		exitWithError(fmt.Sprintf("Failed to write output file: %v", err))
	}
}

func exitWithError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Run with -h flag for usage information.\n")
	os.Exit(1)
}
