package matcher

import (
	"fmt"

	"github.com/tirasundara/cashrec-reconciliation/internal/domain"
)

// Pool holds both sides of one labelling run and mints match ids.
// Labels are written into the caller's slices.
type Pool struct {
	ledger []domain.LedgerTransaction
	bank   []domain.BankTransaction
	nextID int
	groups []domain.MatchGroup
}

// NewPool creates a pool over the given transactions. Match ids start at 1.
func NewPool(ledger []domain.LedgerTransaction, bank []domain.BankTransaction) *Pool {
	return &Pool{
		ledger: ledger,
		bank:   bank,
		nextID: 1,
	}
}

// Unreconciled counts the rows on each side that still have no label
func (p *Pool) Unreconciled() (ledger, bank int) {
	for i := range p.ledger {
		if !p.ledger[i].Reconciled() {
			ledger++
		}
	}
	for i := range p.bank {
		if !p.bank[i].Reconciled() {
			bank++
		}
	}
	return ledger, bank
}

// Groups returns the match groups committed so far, in id order
func (p *Pool) Groups() []domain.MatchGroup {
	return p.groups
}

// Begin snapshots the unreconciled rows of both sides for one pass.
// Decisions made during the pass are applied by Commit.
func (p *Pool) Begin() *Pass {
	pass := &Pass{
		pool:    p,
		claimed: make(map[int]bool),
	}

	for i := range p.bank {
		if !p.bank[i].Reconciled() {
			pass.bank = append(pass.bank, i)
		}
	}
	for i := range p.ledger {
		if !p.ledger[i].Reconciled() {
			pass.ledger = append(pass.ledger, i)
		}
	}

	return pass
}

type decision struct {
	label  domain.MatchLabel
	bank   []int
	ledger []int
}

// Pass is one sweep of a stage over the unreconciled rows. Ledger rows
// claimed by a decision are no longer offered as candidates in the same pass.
type Pass struct {
	pool      *Pool
	bank      []int
	ledger    []int
	claimed   map[int]bool
	decisions []decision
}

// BankRows returns the unreconciled bank rows of the snapshot, in file order
func (ps *Pass) BankRows() []int {
	return ps.bank
}

// Bank returns the bank row at position i
func (ps *Pass) Bank(i int) *domain.BankTransaction {
	return &ps.pool.bank[i]
}

// Ledger returns the ledger row at position i
func (ps *Pass) Ledger(i int) *domain.LedgerTransaction {
	return &ps.pool.ledger[i]
}

// LedgerRows returns the unclaimed ledger rows of the snapshot, in file order
func (ps *Pass) LedgerRows() []int {
	return ps.Candidates(nil)
}

// Candidates returns the unclaimed ledger rows accepted by keep, in file
// order. A nil keep accepts every row.
func (ps *Pass) Candidates(keep func(*domain.LedgerTransaction) bool) []int {
	out := make([]int, 0)
	for _, i := range ps.ledger {
		if ps.claimed[i] {
			continue
		}
		if keep != nil && !keep(&ps.pool.ledger[i]) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// First returns the first unclaimed ledger row accepted by keep
func (ps *Pass) First(keep func(*domain.LedgerTransaction) bool) (int, bool) {
	for _, i := range ps.ledger {
		if ps.claimed[i] {
			continue
		}
		if keep(&ps.pool.ledger[i]) {
			return i, true
		}
	}
	return 0, false
}

// Match records a new match group of one bank row and the given ledger
// rows, minting the next match id for it.
func (ps *Pass) Match(label domain.MatchLabel, bankRow int, ledgerRows ...int) domain.MatchLabel {
	label.ID = ps.pool.nextID
	ps.pool.nextID++

	ps.record(label, []int{bankRow}, ledgerRows)
	return label
}

// Flag records a coverage label on the given rows. Coverage labels carry
// no match id.
func (ps *Pass) Flag(label domain.MatchLabel, bankRows, ledgerRows []int) {
	label.ID = 0
	ps.record(label, bankRows, ledgerRows)
}

func (ps *Pass) record(label domain.MatchLabel, bankRows, ledgerRows []int) {
	for _, i := range ledgerRows {
		ps.claimed[i] = true
	}

	ps.decisions = append(ps.decisions, decision{
		label:  label,
		bank:   append([]int(nil), bankRows...),
		ledger: append([]int(nil), ledgerRows...),
	})
}

// Commit applies every decision of the pass. It fails if a decision would
// relabel a row that is already reconciled.
func (ps *Pass) Commit() error {
	for _, d := range ps.decisions {
		for _, i := range d.bank {
			if !ps.pool.bank[i].Assign(d.label) {
				return fmt.Errorf("bank row %d, %s: %w", i, d.label, domain.ErrRelabel)
			}
		}
		for _, i := range d.ledger {
			if !ps.pool.ledger[i].Assign(d.label) {
				return fmt.Errorf("ledger row %d, %s: %w", i, d.label, domain.ErrRelabel)
			}
		}

		if d.label.ID != 0 {
			ps.pool.groups = append(ps.pool.groups, domain.MatchGroup{
				Label:      d.label,
				LedgerRows: d.ledger,
				BankRows:   d.bank,
			})
		}
	}

	ps.decisions = nil
	return nil
}
