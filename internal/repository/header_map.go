package repository

import (
	"fmt"
	"strings"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// headerMap resolves column positions by name, ignoring case and surrounding spaces
type headerMap map[string]int

// newHeaderMap indexes header and fails on the first required column it cannot find
func newHeaderMap(header []string, required ...string) (headerMap, error) {
	columns := make(headerMap, len(header))
	for i, field := range header {
		key := strings.ToLower(strings.TrimSpace(field))
		if _, ok := columns[key]; !ok {
			columns[key] = i
		}
	}

	for _, column := range required {
		if !columns.has(column) {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingColumn, column)
		}
	}

	return columns, nil
}

func (m headerMap) has(column string) bool {
	_, ok := m[strings.ToLower(column)]
	return ok
}

// get returns the trimmed cell of column, or "" when the column is absent
// or the row is short
func (m headerMap) get(row []string, column string) string {
	i, ok := m[strings.ToLower(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
