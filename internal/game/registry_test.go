package game

import (
	"errors"
	"testing"
)

func TestRegistryPlaceAndLookup(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	if err := r.Place(PlayerOne, 1, 3); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if err := r.Place(PlayerOne, 3, 0); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	res, ok := r.ResilienceOf(PlayerOne, 0)
	if !ok || res != 1.0/3 {
		t.Fatalf("ResilienceOf(p1, 0) = %v, %v; want 1/3, true", res, ok)
	}
	if _, ok := r.ResilienceOf(PlayerOne, 1); ok {
		t.Fatal("expected no ship at position 1")
	}
	if _, ok := r.ResilienceOf(PlayerTwo, 3); ok {
		t.Fatal("player 2 has no ships yet")
	}

	ships := r.Ships(PlayerOne)
	if len(ships) != 2 || ships[0].Order != 1 || ships[1].Order != 3 {
		t.Fatalf("Ships = %+v, want orders [1 3]", ships)
	}
	if got := r.NextOrder(PlayerOne); got != 2 {
		t.Fatalf("NextOrder = %d, want 2", got)
	}
}

func TestRegistryRejectsInvalidPlacements(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	if err := r.Place(PlayerOne, 1, 2); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	tcs := []struct {
		name   string
		player Player
		order  int
		pos    Position
		want   error
	}{
		{name: "duplicate position", player: PlayerOne, order: 2, pos: 2, want: ErrInvalidPlacement},
		{name: "repeated order", player: PlayerOne, order: 1, pos: 4, want: ErrInvalidPlacement},
		{name: "order zero", player: PlayerOne, order: 0, pos: 4, want: ErrInvalidPlacement},
		{name: "order four", player: PlayerOne, order: 4, pos: 4, want: ErrInvalidPlacement},
		{name: "negative position", player: PlayerOne, order: 2, pos: -1, want: ErrInvalidPosition},
		{name: "position past board", player: PlayerOne, order: 2, pos: 5, want: ErrInvalidPosition},
		{name: "unknown player", player: PlayerNone, order: 2, pos: 1, want: ErrInvalidPlayer},
	}
	for _, tc := range tcs {
		if err := r.Place(tc.player, tc.order, tc.pos); !errors.Is(err, tc.want) {
			t.Fatalf("%s: Place error = %v, want %v", tc.name, err, tc.want)
		}
	}

	// The other player's board is independent.
	if err := r.Place(PlayerTwo, 1, 2); err != nil {
		t.Fatalf("player 2 Place returned error: %v", err)
	}
}

func TestRegistryIsImmutableOnceSealed(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	if err := r.Place(PlayerOne, 1, 0); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	r.Seal()
	if err := r.Place(PlayerOne, 2, 1); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("Place after Seal error = %v, want %v", err, ErrInvalidPlacement)
	}
	if !r.Sealed() {
		t.Fatal("expected registry to report sealed")
	}
}

func TestRegistryReadsAreIdempotent(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	if err := r.Place(PlayerTwo, 2, 4); err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	first, ok1 := r.ResilienceOf(PlayerTwo, 4)
	for i := 0; i < 10; i++ {
		got, ok := r.ResilienceOf(PlayerTwo, 4)
		if got != first || ok != ok1 {
			t.Fatalf("read %d: ResilienceOf = %v, %v; want %v, %v", i, got, ok, first, ok1)
		}
	}
}

func TestRegistryCompleteAndNextOrder(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	for order, pos := range []Position{4, 0, 2} {
		if r.Complete(PlayerOne) {
			t.Fatalf("fleet complete after %d ships", order)
		}
		if err := r.Place(PlayerOne, order+1, pos); err != nil {
			t.Fatalf("Place returned error: %v", err)
		}
	}
	if !r.Complete(PlayerOne) {
		t.Fatal("expected complete fleet")
	}
	if got := r.NextOrder(PlayerOne); got != 0 {
		t.Fatalf("NextOrder = %d, want 0", got)
	}
}
