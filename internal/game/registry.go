package game

import (
	"fmt"
	"sort"
)

// Registry holds each player's ship placements. It accepts placements until
// Seal is called and is read-only afterwards.
type Registry struct {
	cfg    Config
	ships  [2][]Ship
	sealed bool
}

// NewRegistry returns an empty registry for the given rules.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Place puts player p's ship with the given order index at pos.
func (r *Registry) Place(p Player, order int, pos Position) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, p)
	}
	if r.sealed {
		return fmt.Errorf("%w: setup has ended", ErrInvalidPlacement)
	}
	if !r.cfg.ValidPosition(pos) {
		return fmt.Errorf("%w: %s position %d", ErrInvalidPosition, p, pos)
	}
	if !r.cfg.ValidOrder(order) {
		return fmt.Errorf("%w: order %d must be within 1-%d", ErrInvalidPlacement, order, r.cfg.ShipsPerPlayer)
	}
	for _, s := range r.ships[p.index()] {
		if s.Order == order {
			return fmt.Errorf("%w: %s already placed ship %d", ErrInvalidPlacement, p, order)
		}
		if s.Position == pos {
			return fmt.Errorf("%w: %s already has a ship at %d", ErrInvalidPlacement, p, pos)
		}
	}
	r.ships[p.index()] = append(r.ships[p.index()], Ship{Owner: p, Order: order, Position: pos})
	return nil
}

// Complete reports whether player p has placed a full fleet.
func (r *Registry) Complete(p Player) bool {
	return p.Valid() && len(r.ships[p.index()]) == r.cfg.ShipsPerPlayer
}

// NextOrder returns the lowest order index p has not placed yet, or 0 when
// the fleet is complete.
func (r *Registry) NextOrder(p Player) int {
	if !p.Valid() {
		return 0
	}
	for order := 1; order <= r.cfg.ShipsPerPlayer; order++ {
		if _, ok := r.shipByOrder(p, order); !ok {
			return order
		}
	}
	return 0
}

// Seal ends the setup phase.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether setup has ended.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// ResilienceOf returns 1/order for p's ship at pos. The boolean is false
// when no ship of p occupies pos; that is not an error.
func (r *Registry) ResilienceOf(p Player, pos Position) (float64, bool) {
	s, ok := r.ShipAt(p, pos)
	if !ok {
		return 0, false
	}
	return s.Resilience(), true
}

// ShipAt returns p's ship at pos, if any.
func (r *Registry) ShipAt(p Player, pos Position) (Ship, bool) {
	if !p.Valid() {
		return Ship{}, false
	}
	for _, s := range r.ships[p.index()] {
		if s.Position == pos {
			return s, true
		}
	}
	return Ship{}, false
}

// Ships returns a copy of p's fleet ordered by order index.
func (r *Registry) Ships(p Player) []Ship {
	if !p.Valid() {
		return nil
	}
	out := append([]Ship(nil), r.ships[p.index()]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (r *Registry) shipByOrder(p Player, order int) (Ship, bool) {
	for _, s := range r.ships[p.index()] {
		if s.Order == order {
			return s, true
		}
	}
	return Ship{}, false
}
