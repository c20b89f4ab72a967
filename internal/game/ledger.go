package game

import "fmt"

// Ledger counts attacks per attacking player and board position. Counts only
// ever grow.
type Ledger struct {
	size   int
	counts [2][]int
}

// NewLedger returns an empty ledger for boards of the given size.
func NewLedger(boardSize int) *Ledger {
	l := &Ledger{size: boardSize}
	for i := range l.counts {
		l.counts[i] = make([]int, boardSize)
	}
	return l
}

// RecordAttack adds one attack by attacker on the opponent's pos.
func (l *Ledger) RecordAttack(attacker Player, pos Position) error {
	if !attacker.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, attacker)
	}
	if pos < 0 || int(pos) >= l.size {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	l.counts[attacker.index()][pos]++
	return nil
}

// AttacksOn returns how many attacks have landed on defender's pos.
func (l *Ledger) AttacksOn(defender Player, pos Position) int {
	attacker := defender.Opponent()
	if !attacker.Valid() || pos < 0 || int(pos) >= l.size {
		return 0
	}
	return l.counts[attacker.index()][pos]
}

// AttacksBy returns a copy of attacker's per-position counts.
func (l *Ledger) AttacksBy(attacker Player) []int {
	if !attacker.Valid() {
		return nil
	}
	return append([]int(nil), l.counts[attacker.index()]...)
}

// Total returns the number of attacks attacker has made.
func (l *Ledger) Total(attacker Player) int {
	total := 0
	for _, c := range l.AttacksBy(attacker) {
		total += c
	}
	return total
}

// restore replaces attacker's counts in one step.
func (l *Ledger) restore(attacker Player, counts []int) error {
	if !attacker.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, attacker)
	}
	if len(counts) > l.size {
		return fmt.Errorf("%w: %d positions on a board of %d", ErrInvalidPosition, len(counts), l.size)
	}
	for pos, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %d at %d", ErrInvalidAttackCount, n, pos)
		}
	}
	row := make([]int, l.size)
	copy(row, counts)
	l.counts[attacker.index()] = row
	return nil
}
