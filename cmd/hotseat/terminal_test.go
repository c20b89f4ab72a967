package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pefman/quantum-battleships/internal/engine"
	"github.com/pefman/quantum-battleships/internal/game"
)

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	s.SetSize(100, 30)
	t.Cleanup(s.Fini)
	return s
}

func newSession(t *testing.T, board, ships int) *game.Session {
	t.Helper()
	cfg := game.Config{Samples: 128, BoardSize: board, ShipsPerPlayer: ships, DestroyThreshold: 95}
	sess, err := game.NewSession(cfg, engine.NewSeededSampler(3))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

// screenText returns row y of the simulated screen.
func screenText(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) > 0 {
			b.WriteRune(c.Runes[0])
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func TestPlayToDrawWithEnterOnly(t *testing.T) {
	screen := newSimScreen(t)
	sess := newSession(t, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
			}
		}
	}()

	out, err := play(ctx, screen, sess)
	close(done)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !out.Over || !out.Draw {
		t.Fatalf("outcome = %+v, want draw", out)
	}
	if got := sess.History(); len(got) != 1 {
		t.Fatalf("rounds = %d, want 1", len(got))
	}
}

func TestPickPositionMovesCursor(t *testing.T) {
	screen := newSimScreen(t)
	sess := newSession(t, 5, 1)
	term := newTerminal(screen, sess)
	ctx := context.Background()

	screen.InjectKey(tcell.KeyRight, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRight, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'h', tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	pos, err := term.pickPosition(ctx, game.PlayerOne, "place", false)
	if err != nil || pos != 1 {
		t.Fatalf("pos = %d err = %v, want 1", pos, err)
	}

	// Digits jump; out-of-board digits and moves past the edge are ignored.
	screen.InjectKey(tcell.KeyRune, '4', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, '9', tcell.ModNone)
	screen.InjectKey(tcell.KeyRight, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	pos, err = term.pickPosition(ctx, game.PlayerOne, "place", false)
	if err != nil || pos != 4 {
		t.Fatalf("pos = %d err = %v, want 4", pos, err)
	}

	// Each seat keeps its own cursor.
	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	pos, err = term.pickPosition(ctx, game.PlayerTwo, "place", false)
	if err != nil || pos != 0 {
		t.Fatalf("player two pos = %d err = %v, want 0", pos, err)
	}

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	if _, err := term.pickPosition(ctx, game.PlayerOne, "place", false); !errors.Is(err, errQuit) {
		t.Fatalf("err = %v, want errQuit", err)
	}
}

func TestRejectedMessageShownOnNextPrompt(t *testing.T) {
	screen := newSimScreen(t)
	sess := newSession(t, 3, 1)
	term := newTerminal(screen, sess)

	if err := term.Rejected(context.Background(), game.PlayerOne, game.ErrInvalidPosition); err != nil {
		t.Fatal(err)
	}
	term.drawBoards(game.PlayerOne, "Round 1", 0, true)
	if row := screenText(screen, 10); !strings.Contains(row, game.ErrInvalidPosition.Error()) {
		t.Fatalf("status row = %q", row)
	}
	if row := screenText(screen, 0); !strings.Contains(row, "player 1") {
		t.Fatalf("title row = %q", row)
	}
}

func TestHandOverHidesBoard(t *testing.T) {
	screen := newSimScreen(t)
	sess := newSession(t, 3, 1)
	term := newTerminal(screen, sess)

	screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	if err := term.handOver(context.Background(), game.PlayerTwo); err != nil {
		t.Fatalf("hand over: %v", err)
	}
	if row := screenText(screen, 4); !strings.Contains(row, "Pass the keyboard to player 2") {
		t.Fatalf("hand-over row = %q", row)
	}
	if term.holder != game.PlayerTwo {
		t.Fatalf("holder = %v", term.holder)
	}
	// Same holder: no prompt, no key needed.
	if err := term.handOver(context.Background(), game.PlayerTwo); err != nil {
		t.Fatalf("repeat hand over: %v", err)
	}
}

func TestCellWidth(t *testing.T) {
	for _, s := range []string{"", "1", "37%", "100%", "toolong"} {
		if got := cell(s); len(got) != cellWidth || got[0] != '[' {
			t.Fatalf("cell(%q) = %q", s, got)
		}
	}
}
