package game

import (
	"fmt"

	"github.com/pefman/quantum-battleships/internal/engine"
)

// Snapshot is the serialisable state of a session at a round boundary.
// Targets committed for a round that has not been resolved are not included.
type Snapshot struct {
	ID      string  `json:"id"`
	Config  Config  `json:"config"`
	Round   int     `json:"round"`
	Ships   []Ship  `json:"ships"`
	Attacks [][]int `json:"attacks"`
	Outcome Outcome `json:"outcome"`
}

// Snapshot captures the registry, ledger, round number and outcome.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:      s.id,
		Config:  s.cfg,
		Round:   s.Round(),
		Outcome: s.outcome,
	}
	for _, p := range Players {
		snap.Ships = append(snap.Ships, s.registry.Ships(p)...)
		snap.Attacks = append(snap.Attacks, s.ledger.AttacksBy(p))
	}
	return snap
}

// Restore rebuilds a session from a snapshot. Round history is not part of
// a snapshot and starts empty.
func Restore(snap Snapshot, sampler engine.Sampler, opts ...Option) (*Session, error) {
	opts = append([]Option{WithID(snap.ID)}, opts...)
	s, err := NewSession(snap.Config, sampler, opts...)
	if err != nil {
		return nil, err
	}
	for _, ship := range snap.Ships {
		if err := s.Place(ship.Owner, ship.Order, ship.Position); err != nil {
			return nil, fmt.Errorf("restore ship: %w", err)
		}
	}
	if len(snap.Attacks) > len(Players) {
		return nil, fmt.Errorf("%w: %d attack rows", ErrInvalidConfig, len(snap.Attacks))
	}
	for i, row := range snap.Attacks {
		attacker := Players[i]
		if err := s.ledger.restore(attacker, row); err != nil {
			return nil, fmt.Errorf("restore attacks: %w", err)
		}
		// One attack per player per resolved round.
		if total := s.ledger.Total(attacker); total > max(snap.Round, 0) {
			return nil, fmt.Errorf("%w: %s made %d attacks by round %d", ErrInvalidAttackCount, attacker, total, snap.Round)
		}
	}
	if s.engine == nil {
		if snap.Round > 0 || snap.Outcome.Over {
			return nil, fmt.Errorf("%w: snapshot in round %d has incomplete fleets", ErrInvalidConfig, snap.Round)
		}
		return s, nil
	}
	round := snap.Round
	if round < 1 {
		round = 1
	}
	s.engine.restore(round, snap.Outcome.Over)
	s.outcome = snap.Outcome
	return s, nil
}
