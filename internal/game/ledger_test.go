package game

import (
	"errors"
	"testing"
)

func TestLedgerCountsAttacksAgainstDefender(t *testing.T) {
	l := NewLedger(DefaultBoardSize)
	for i := 0; i < 3; i++ {
		if err := l.RecordAttack(PlayerOne, 2); err != nil {
			t.Fatalf("RecordAttack returned error: %v", err)
		}
	}
	if err := l.RecordAttack(PlayerTwo, 2); err != nil {
		t.Fatalf("RecordAttack returned error: %v", err)
	}

	if got := l.AttacksOn(PlayerTwo, 2); got != 3 {
		t.Fatalf("AttacksOn(p2, 2) = %d, want 3", got)
	}
	if got := l.AttacksOn(PlayerOne, 2); got != 1 {
		t.Fatalf("AttacksOn(p1, 2) = %d, want 1", got)
	}
	if got := l.AttacksOn(PlayerTwo, 0); got != 0 {
		t.Fatalf("AttacksOn(p2, 0) = %d, want 0", got)
	}
	if got := l.Total(PlayerOne); got != 3 {
		t.Fatalf("Total(p1) = %d, want 3", got)
	}
}

func TestLedgerRejectsPositionsOffTheBoard(t *testing.T) {
	l := NewLedger(DefaultBoardSize)
	for _, pos := range []Position{-1, 5, 99} {
		if err := l.RecordAttack(PlayerOne, pos); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("RecordAttack(%d) error = %v, want %v", pos, err, ErrInvalidPosition)
		}
	}
	if err := l.RecordAttack(PlayerNone, 1); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("RecordAttack(none) error = %v, want %v", err, ErrInvalidPlayer)
	}
	if got := l.AttacksOn(PlayerTwo, 7); got != 0 {
		t.Fatalf("AttacksOn off board = %d, want 0", got)
	}
}

func TestLedgerCountsNeverDecrease(t *testing.T) {
	l := NewLedger(DefaultBoardSize)
	prev := 0
	for i := 0; i < 6; i++ {
		if err := l.RecordAttack(PlayerTwo, Position(i%2)); err != nil {
			t.Fatalf("RecordAttack returned error: %v", err)
		}
		got := l.AttacksOn(PlayerOne, 0)
		if got < prev {
			t.Fatalf("count dropped from %d to %d", prev, got)
		}
		prev = got
		if again := l.AttacksOn(PlayerOne, 0); again != got {
			t.Fatalf("repeated read = %d, want %d", again, got)
		}
	}
}

func TestLedgerAttacksByReturnsCopy(t *testing.T) {
	l := NewLedger(DefaultBoardSize)
	if err := l.RecordAttack(PlayerOne, 4); err != nil {
		t.Fatalf("RecordAttack returned error: %v", err)
	}
	row := l.AttacksBy(PlayerOne)
	row[4] = 100
	if got := l.AttacksOn(PlayerTwo, 4); got != 1 {
		t.Fatalf("AttacksOn after mutating copy = %d, want 1", got)
	}
}

func TestLedgerRestoreReplacesCounts(t *testing.T) {
	l := NewLedger(DefaultBoardSize)
	if err := l.RecordAttack(PlayerOne, 0); err != nil {
		t.Fatalf("RecordAttack returned error: %v", err)
	}
	if err := l.restore(PlayerOne, []int{0, 4, 1}); err != nil {
		t.Fatalf("restore returned error: %v", err)
	}
	if got := l.AttacksBy(PlayerOne); len(got) != DefaultBoardSize || got[0] != 0 || got[1] != 4 || got[2] != 1 {
		t.Fatalf("AttacksBy(p1) = %v", got)
	}
	if got := l.Total(PlayerOne); got != 5 {
		t.Fatalf("Total(p1) = %d, want 5", got)
	}
	if err := l.restore(PlayerNone, nil); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("restore(PlayerNone) error = %v", err)
	}
}
