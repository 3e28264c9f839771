package domain

import "errors"

var (
	// ErrMissingColumn is returned when an input file lacks a required column
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoTransactions is returned when a fund has nothing to reconcile on either side
	ErrNoTransactions = errors.New("no transactions to reconcile")

	// ErrUnknownFund is returned when a fund list entry has no short name
	ErrUnknownFund = errors.New("fund short name missing")

	// ErrRelabel is returned when a stage tries to label an already reconciled row
	ErrRelabel = errors.New("transaction already reconciled")
)
