package repository

import (
	"context"
	"fmt"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
	"github.com/tirasundara/cashrec-reconciliation/pkg/fileutil"
)

const colFundAccount = "Account"

// CSVFundRepository implements the FundRepository interface for the fund
// account list, one fund per row
type CSVFundRepository struct {
	FilePath string
}

// NewCSVFundRepository creates a new CSVFundRepository
func NewCSVFundRepository(fp string) *CSVFundRepository {
	return &CSVFundRepository{FilePath: fp}
}

// GetFunds lists funds in file order. Rows without an account are skipped.
func (r *CSVFundRepository) GetFunds(_ context.Context) ([]domain.Fund, error) {
	reader := fileutil.NewCSVReader(r.FilePath)

	header, err := reader.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("reading fund list header: %w", err)
	}

	columns, err := newHeaderMap(header, colFundName, colFundAccount)
	if err != nil {
		return nil, fmt.Errorf("mapping fund list columns: %w", err)
	}

	funds := make([]domain.Fund, 0)
	err = reader.ReadAndProcessByRow(func(row []string) error {
		account := columns.get(row, colFundAccount)
		if account == "" {
			return nil
		}
		funds = append(funds, domain.Fund{
			ShortName: columns.get(row, colFundName),
			Account:   account,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing fund list: %w", err)
	}

	return funds, nil
}
