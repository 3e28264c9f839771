package tagger

import (
	"strconv"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// SPVColumns is the layout of the SPV consensus export
var SPVColumns = []string{
	"Row_Index", "Match_ID", "Type", "Detail", "Description2",
	"Matched_SPV", "Matched_Company", "Conf_Score", "Status", "Account_ID",
}

// SPVRecords renders fuzzy matches in SPVColumns order. rows must be the
// slice the matches were scored from.
func SPVRecords(account string, rows []domain.ReportRow, matches []SPVMatch) [][]string {
	out := make([][]string, 0, len(matches))
	for _, m := range matches {
		r := rows[m.Row]
		out = append(out, []string{
			strconv.Itoa(m.Row),
			m.MatchID,
			r.Type,
			r.Detail,
			r.Description2,
			m.SPV,
			m.Originator,
			strconv.FormatFloat(m.Score, 'f', 2, 64),
			m.Status,
			account,
		})
	}
	return out
}
