package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/tirasundara/cashrec-reconciliation/internal/aggregate"
	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/logger"
	"github.com/tirasundara/cashrec-reconciliation/internal/tagger"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// ErrAccountsMissing is returned in strict order mode when a listed account has no report
var ErrAccountsMissing = errors.New("listed accounts have no report")

// TagResult summarises the tagging of one account
type TagResult struct {
	Account     string `json:"account"`
	Rows        int    `json:"rows"`
	Exceptions  int    `json:"exceptions"`
	Summary     int    `json:"summary_rows"`
	Suggestions int    `json:"suggestions"`
	Mislabels   int    `json:"mislabels"`
	SPVMatches  int    `json:"spv_matches"`
	Err         string `json:"error,omitempty"`
}

// TaggingService tags previously exported reports and writes the
// aggregation outputs of each account
type TaggingService struct {
	reports   domain.ReportRepository
	rules     domain.RuleSet
	tagger    *tagger.Tagger
	aggOpts   aggregate.Options
	fuzzyOpts tagger.FuzzyOptions
	outputDir string
}

// NewTaggingService creates a new TaggingService. The tagger is built once
// from rules and shared by every account.
func NewTaggingService(
	reports domain.ReportRepository,
	rules domain.RuleSet,
	aggOpts aggregate.Options,
	fuzzyOpts tagger.FuzzyOptions,
	outputDir string,
) *TaggingService {
	return &TaggingService{
		reports:   reports,
		rules:     rules,
		tagger:    tagger.New(rules),
		aggOpts:   aggOpts,
		fuzzyOpts: fuzzyOpts,
		outputDir: outputDir,
	}
}

// BuildQueue orders the accounts to tag. Listed accounts with a report come
// first, in list order. Unlisted accounts are appended sorted when
// includeUnlisted is set. strictOrder turns a listed account with no report
// into an error; otherwise it is skipped and returned in missing.
func BuildQueue(ordered []string, available map[string]string, includeUnlisted, strictOrder bool) (queue, missing []string, err error) {
	queue = make([]string, 0, len(available))
	missing = make([]string, 0)
	queued := make(map[string]bool, len(available))

	for _, account := range ordered {
		if _, ok := available[account]; !ok {
			missing = append(missing, account)
			continue
		}
		if queued[account] {
			continue
		}
		queued[account] = true
		queue = append(queue, account)
	}

	if len(missing) > 0 && strictOrder {
		return nil, missing, fmt.Errorf("%w: %v", ErrAccountsMissing, missing)
	}

	if includeUnlisted {
		extras := make([]string, 0)
		for account := range available {
			if !queued[account] {
				extras = append(extras, account)
			}
		}
		sort.Strings(extras)
		queue = append(queue, extras...)
	}

	return queue, missing, nil
}

// Run tags every queued account in order. A failing account is recorded
// and the rest of the queue still runs.
func (s *TaggingService) Run(ctx context.Context, queue []string) []TagResult {
	log := logger.FromContext(ctx)
	results := make([]TagResult, 0, len(queue))

	for _, account := range queue {
		accountLog := log.With().Str("account", account).Logger()

		res, err := s.TagAccount(logger.WithContext(ctx, accountLog), account)
		if err != nil {
			accountLog.Error().Err(err).Msg("account tagging failed")
			res.Err = err.Error()
		} else {
			accountLog.Info().Int("rows", res.Rows).Int("exceptions", res.Exceptions).Msg("account tagged")
		}
		results = append(results, res)
	}

	return results
}

// TagAccount tags one account's report, aggregates it by match group and
// writes the detailed, exceptions, summary and suggestion tables, plus the
// mislabel suspicions and SPV consensus when there are any.
func (s *TaggingService) TagAccount(ctx context.Context, account string) (TagResult, error) {
	res := TagResult{Account: account}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	rows, err := s.reports.GetRows(ctx, account)
	if err != nil {
		return res, fmt.Errorf("reading report: %w", err)
	}

	tagged := s.tagger.TagAll(rows)
	agg := aggregate.Aggregate(account, tagged, s.aggOpts)
	spvs := tagger.MatchSPVs(rows, s.rules, s.fuzzyOpts)

	res.Rows = len(agg.Detailed)
	res.Exceptions = len(agg.Exceptions)
	res.Summary = len(agg.Summary)
	res.Suggestions = agg.Suggestions.Len()
	res.Mislabels = len(agg.Mislabels)
	res.SPVMatches = len(spvs)

	type export struct {
		suffix string
		header []string
		rows   [][]string
	}
	exports := []export{
		{"reconciliation_detailed", aggregate.DetailedColumns, aggregate.DetailedRecords(account, agg.Detailed)},
		{"exceptions", aggregate.DetailedColumns, aggregate.DetailedRecords(account, agg.Exceptions)},
		{"summary", aggregate.SummaryColumns, aggregate.SummaryRecords(account, agg.Summary)},
		{"tag_suggestions", aggregate.SuggestionColumns, aggregate.SuggestionRecords(account, agg.Suggestions)},
	}
	if len(agg.Mislabels) > 0 {
		exports = append(exports, export{"mislabel_suspicions", aggregate.MislabelColumns, aggregate.MislabelRecords(account, agg.Mislabels)})
	}
	if len(spvs) > 0 {
		exports = append(exports, export{"spv_consensus", tagger.SPVColumns, tagger.SPVRecords(account, rows, spvs)})
	}

	for _, e := range exports {
		path := TagOutputPath(s.outputDir, account, e.suffix)
		if err := fileutil.NewCSVWriter(path).WriteAll(e.header, e.rows); err != nil {
			return res, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
		}
	}

	return res, nil
}

// TagOutputPath returns the path of one of an account's tagging outputs
func TagOutputPath(dir, account, suffix string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", account, suffix))
}
