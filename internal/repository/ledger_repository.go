package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/internal/logger"
	"github.com/tirasundara/cashrec-reconciliation/internal/normalize"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

// Ledger file columns
const (
	colLedgerDate   = "Date"
	colLedgerAmount = "Amount"
	colFundName     = "FundShortName"
	colLedgerType   = "Type"
	colLedgerDetail = "Detail"
)

var ledgerHeaderFields = []string{colLedgerDate, colLedgerAmount, colFundName, colLedgerType, colLedgerDetail}

// CSVLedgerRepository implements the LedgerRepository interface for the
// shared cash rec file holding every fund's ledger
type CSVLedgerRepository struct {
	FilePath   string
	NumWorkers int
	BatchSize  int
}

// NewCSVLedgerRepository creates a new CSVLedgerRepository
func NewCSVLedgerRepository(fp string) *CSVLedgerRepository {
	return &CSVLedgerRepository{
		FilePath:   fp,
		NumWorkers: 4,    // Default to 4 workers
		BatchSize:  1000, // Default to 1000 records per batch
	}
}

type ledgerBatch struct {
	seq  int
	from int // file position of the first row
	rows [][]string
}

type ledgerResult struct {
	seq  int
	txns []domain.LedgerTransaction
}

// GetTransactions parses the ledger in batches across a pool of workers and
// returns the rows in file order. Unreadable cells degrade to an Unknown
// date or a zero amount, no row is dropped.
func (r *CSVLedgerRepository) GetTransactions(ctx context.Context) ([]domain.LedgerTransaction, error) {
	reader := fileutil.NewCSVReader(r.FilePath)

	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading ledger header: %w", err)
	}

	columns, err := newHeaderMap(header, ledgerHeaderFields...)
	if err != nil {
		return nil, fmt.Errorf("mapping ledger columns: %w", err)
	}

	log := logger.FromContext(ctx).With().Str("file", r.FilePath).Logger()

	workers := max(r.NumWorkers, 1)
	batchSize := max(r.BatchSize, 1)

	// Set up concurrent processing
	jobs := make(chan ledgerBatch, workers)
	results := make(chan ledgerResult, workers)
	errChan := make(chan error, 1)

	// Start the worker pool
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				results <- ledgerResult{seq: batch.seq, txns: parseLedgerBatch(columns, batch, log)}
			}
		}()
	}

	// Close results once every worker is done
	go func() {
		wg.Wait()
		close(results)
	}()

	// Read and distribute batches of CSV records to workers
	go func() {
		defer close(jobs)

		if err := distributeLedgerRows(ctx, reader, jobs, batchSize); err != nil {
			errChan <- err
		}
	}()

	batches := make(map[int][]domain.LedgerTransaction)
	for res := range results {
		batches[res.seq] = res.txns
	}

	select {
	case err := <-errChan:
		return nil, fmt.Errorf("processing ledger rows: %w", err)
	default:
	}

	txns := make([]domain.LedgerTransaction, 0)
	for seq := 0; seq < len(batches); seq++ {
		txns = append(txns, batches[seq]...)
	}

	log.Debug().Int("rows", len(txns)).Msg("ledger loaded")
	return txns, nil
}

// distributeLedgerRows streams the file into numbered batches
func distributeLedgerRows(ctx context.Context, reader *fileutil.CSVReader, jobs chan<- ledgerBatch, batchSize int) error {
	batch := ledgerBatch{rows: make([][]string, 0, batchSize)}
	pos := 0

	send := func() error {
		select {
		case jobs <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = ledgerBatch{seq: batch.seq + 1, from: pos, rows: make([][]string, 0, batchSize)}
		return nil
	}

	err := reader.ReadAndProcessByRow(func(row []string) error {
		batch.rows = append(batch.rows, row)
		pos++

		// When batch is full, send it to a worker
		if len(batch.rows) >= batchSize {
			return send()
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Send any remaining records in the last batch
	if len(batch.rows) > 0 {
		return send()
	}
	return nil
}

func parseLedgerBatch(columns headerMap, batch ledgerBatch, log zerolog.Logger) []domain.LedgerTransaction {
	txns := make([]domain.LedgerTransaction, 0, len(batch.rows))

	for i, row := range batch.rows {
		rawDate := columns.get(row, colLedgerDate)
		date := normalize.ParseDate(rawDate)
		if !date.IsValid() && rawDate != "" {
			log.Debug().Int("row", batch.from+i).Str("value", rawDate).Msg("unreadable ledger date")
		}

		rawAmount := columns.get(row, colLedgerAmount)
		amount, ok := normalize.ParseAmountStrict(rawAmount)
		if !ok {
			log.Debug().Int("row", batch.from+i).Str("value", rawAmount).Msg("unreadable ledger amount")
		}

		txns = append(txns, domain.LedgerTransaction{
			Entry: domain.Entry{
				Row:  batch.from + i,
				Date: date,
				Net:  normalize.Round(amount),
			},
			FundShortName: columns.get(row, colFundName),
			Type:          columns.get(row, colLedgerType),
			Detail:        columns.get(row, colLedgerDetail),
		})
	}

	return txns
}
