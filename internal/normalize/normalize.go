// Package normalize coerces raw text cells from the input feeds into
// calendar dates and two-decimal money amounts.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Unknown is the date given to cells that cannot be parsed. It is not a
// valid civil.Date, so it never compares equal to a real date.
var Unknown = civil.Date{}

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02-01-2006",
	"02.01.2006",
}

var blankValues = map[string]bool{
	"":     true,
	"nan":  true,
	"nat":  true,
	"none": true,
	"null": true,
}

// ParseDate parses an ISO date first and falls back to day-first
// (DD/MM/YYYY) forms. Time of day is dropped. Anything else is Unknown.
func ParseDate(raw string) civil.Date {
	s := strings.TrimSpace(raw)
	if blankValues[strings.ToLower(s)] {
		return Unknown
	}

	if d, ok := parseWith(s, isoLayouts); ok {
		return d
	}
	if d, ok := parseWith(s, dayFirstLayouts); ok {
		return d
	}

	return Unknown
}

// ParseISODate only accepts the ISO forms
func ParseISODate(raw string) civil.Date {
	s := strings.TrimSpace(raw)
	if d, ok := parseWith(s, isoLayouts); ok {
		return d
	}
	return Unknown
}

func parseWith(s string, layouts []string) (civil.Date, bool) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return civil.DateOf(t), true
		}
	}
	return Unknown, false
}

var amountNoise = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount strips currency symbols, thousands separators and any other
// noise and parses the rest. Blank or unreadable cells are zero.
func ParseAmount(raw string) decimal.Decimal {
	d, _ := ParseAmountStrict(raw)
	return d
}

// ParseAmountStrict behaves like ParseAmount but reports false when a
// non-blank cell held no readable number.
func ParseAmountStrict(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if blankValues[strings.ToLower(s)] {
		return decimal.Zero, true
	}

	cleaned := amountNoise.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}

	return Round(d), true
}

// Round rounds half away from zero to 2 decimal places
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Net returns credit minus debit, rounded
func Net(credit, debit decimal.Decimal) decimal.Decimal {
	return Round(credit.Sub(debit))
}

// MonthOf returns the YYYY-MM calendar month of a date, empty when Unknown
func MonthOf(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// FormatDate renders a date as YYYY-MM-DD, empty when Unknown
func FormatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}
