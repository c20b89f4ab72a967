package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/pefman/quantum-battleships/internal/game"
)

var errQuit = errors.New("quit")

type mark struct {
	label     string
	destroyed bool
}

const cellWidth = 7

var (
	styleTitle    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText     = tcell.StyleDefault
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleShip     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHit      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleRejected = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// terminal plays both seats on one keyboard. It hands the keyboard over
// between players so neither sees the other's fleet or pending target.
type terminal struct {
	screen tcell.Screen
	sess   *game.Session
	events chan tcell.Event

	holder  game.Player
	cursor  [2]int
	status  string
	known   [2]map[game.Position]mark // measured damage per fleet owner
	pending []game.FleetReport
}

func newTerminal(screen tcell.Screen, sess *game.Session) *terminal {
	t := &terminal{
		screen: screen,
		sess:   sess,
		events: make(chan tcell.Event, 16),
		known:  [2]map[game.Position]mark{{}, {}},
	}
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(t.events)
				return
			}
			t.events <- ev
		}
	}()
	return t
}

func seatIndex(p game.Player) int {
	if p == game.PlayerTwo {
		return 1
	}
	return 0
}

// key waits for the next key press. Escape and Ctrl-C quit.
func (t *terminal) key(ctx context.Context) (*tcell.EventKey, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-t.events:
			if !ok {
				return nil, errQuit
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					return nil, errQuit
				}
				return ev, nil
			case *tcell.EventResize:
				t.screen.Sync()
			}
		}
	}
}

func (t *terminal) waitEnter(ctx context.Context) error {
	for {
		ev, err := t.key(ctx)
		if err != nil {
			return err
		}
		if ev.Key() == tcell.KeyEnter {
			return nil
		}
	}
}

// handOver blanks the screen until p confirms they hold the keyboard.
func (t *terminal) handOver(ctx context.Context, p game.Player) error {
	if t.holder == p {
		return nil
	}
	t.screen.Clear()
	t.text(2, 2, styleTitle, "Quantum Battleships")
	t.text(2, 4, styleText, fmt.Sprintf("Pass the keyboard to %s.", p))
	t.text(2, 5, styleDim, "Press Enter when the other player is not looking.")
	t.screen.Show()
	if err := t.waitEnter(ctx); err != nil {
		return err
	}
	t.holder = p
	return nil
}

// ShipPlacement asks p where the next ship of their fleet goes.
func (t *terminal) ShipPlacement(ctx context.Context, p game.Player) (game.Placement, error) {
	if err := t.handOver(ctx, p); err != nil {
		return game.Placement{}, err
	}
	order := t.sess.NextOrder(p)
	title := fmt.Sprintf("%s: place ship of order %d (resilience 1/%d)", p, order, order)
	pos, err := t.pickPosition(ctx, p, title, false)
	if err != nil {
		return game.Placement{}, err
	}
	return game.Placement{Order: order, Position: pos}, nil
}

// Target asks p where to fire this round.
func (t *terminal) Target(ctx context.Context, p game.Player) (game.Position, error) {
	if err := t.handOver(ctx, p); err != nil {
		return 0, err
	}
	title := fmt.Sprintf("Round %d, %s: choose a target", t.sess.Round(), p)
	return t.pickPosition(ctx, p, title, true)
}

// Rejected shows err on p's next prompt.
func (t *terminal) Rejected(_ context.Context, p game.Player, err error) error {
	t.status = fmt.Sprintf("%s: %v", p, err)
	return nil
}

// RoundResult collects both fleet reports and then shows the round to both players.
func (t *terminal) RoundResult(ctx context.Context, round int, fleet game.FleetReport) error {
	known := t.known[seatIndex(fleet.Owner)]
	for _, sh := range fleet.Ships {
		if !sh.Damage.Known {
			continue
		}
		known[sh.Position] = mark{label: sh.Damage.String(), destroyed: sh.Destroyed}
	}
	t.pending = append(t.pending, fleet)
	if len(t.pending) < len(game.Players) {
		return nil
	}

	t.screen.Clear()
	t.text(2, 1, styleTitle, fmt.Sprintf("Round %d measured", round))
	y := 3
	for _, f := range t.pending {
		t.text(2, y, styleText, fmt.Sprintf("%s fleet: %d of %d destroyed", f.Owner, f.DestroyedCount(), len(f.Ships)))
		y++
		for _, sh := range f.Ships {
			if !sh.Damage.Known {
				continue
			}
			style := styleText
			if sh.Destroyed {
				style = styleHit
			}
			t.text(4, y, style, fmt.Sprintf("position %d: %s", sh.Position, sh.Damage))
			y++
		}
		y++
	}
	t.text(2, y, styleDim, "Press Enter to continue.")
	t.screen.Show()
	t.pending = t.pending[:0]
	// Both players looked at the shared screen; the next prompt hands over again.
	t.holder = game.PlayerNone
	return t.waitEnter(ctx)
}

// GameOver announces the outcome and waits for a key.
func (t *terminal) GameOver(ctx context.Context, out game.Outcome) error {
	t.screen.Clear()
	t.text(2, 2, styleTitle, "Game over")
	msg := "Draw: both fleets were destroyed."
	if !out.Draw {
		msg = fmt.Sprintf("%s wins.", out.Winner)
	}
	t.text(2, 4, styleText, msg)
	t.text(2, 6, styleDim, "Press any key.")
	t.screen.Show()
	_, err := t.key(ctx)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// pickPosition moves a cursor over the board until Enter. With enemy set the
// cursor sits on the opponent's waters, otherwise on p's own fleet.
func (t *terminal) pickPosition(ctx context.Context, p game.Player, title string, enemy bool) (game.Position, error) {
	size := t.sess.Config().BoardSize
	idx := seatIndex(p)
	for {
		t.drawBoards(p, title, t.cursor[idx], enemy)
		ev, err := t.key(ctx)
		if err != nil {
			return 0, err
		}
		switch ev.Key() {
		case tcell.KeyLeft:
			t.cursor[idx] = max(0, t.cursor[idx]-1)
		case tcell.KeyRight:
			t.cursor[idx] = min(size-1, t.cursor[idx]+1)
		case tcell.KeyEnter:
			t.status = ""
			return game.Position(t.cursor[idx]), nil
		case tcell.KeyRune:
			switch r := ev.Rune(); {
			case r == 'h':
				t.cursor[idx] = max(0, t.cursor[idx]-1)
			case r == 'l':
				t.cursor[idx] = min(size-1, t.cursor[idx]+1)
			case r >= '0' && r <= '9':
				if n := int(r - '0'); n < size {
					t.cursor[idx] = n
				}
			}
		}
	}
}

func (t *terminal) drawBoards(p game.Player, title string, cursor int, enemy bool) {
	size := t.sess.Config().BoardSize
	t.screen.Clear()
	t.text(2, 0, styleTitle, "Quantum Battleships | "+p.String())
	t.text(2, 2, styleText, title)

	own := make(map[game.Position]int)
	for _, sh := range t.sess.Ships(p) {
		own[sh.Position] = sh.Order
	}
	ownDamage := t.known[seatIndex(p)]
	enemyDamage := t.known[seatIndex(p.Opponent())]

	const left = 16
	t.text(2, 4, styleDim, "position")
	t.text(2, 5, styleText, "your fleet")
	t.text(2, 6, styleText, "damage")
	t.text(2, 8, styleText, "enemy waters")
	for i := 0; i < size; i++ {
		pos := game.Position(i)
		x := left + i*cellWidth
		t.text(x, 4, styleDim, cell(strconv.Itoa(i)))

		shipLabel, shipStyle := "", styleDim
		if order, ok := own[pos]; ok {
			shipLabel, shipStyle = strconv.Itoa(order), styleShip
		}
		if !enemy && i == cursor {
			shipStyle = styleCursor
		}
		t.text(x, 5, shipStyle, cell(shipLabel))

		dmgStyle := styleText
		if ownDamage[pos].destroyed {
			dmgStyle = styleHit
		}
		t.text(x, 6, dmgStyle, cell(ownDamage[pos].label))

		enemyStyle := styleText
		if enemyDamage[pos].destroyed {
			enemyStyle = styleHit
		}
		if enemy && i == cursor {
			enemyStyle = styleCursor
		}
		t.text(x, 8, enemyStyle, cell(enemyDamage[pos].label))
	}
	if t.status != "" {
		t.text(2, 10, styleRejected, t.status)
	}
	t.text(2, 12, styleDim, "left/right or h/l move, 0-9 jump, Enter confirms, Esc quits")
	t.screen.Show()
}

// cell centres s in a bracketed board cell.
func cell(s string) string {
	inner := cellWidth - 3
	if len(s) > inner {
		s = s[:inner]
	}
	pad := inner - len(s)
	return fmt.Sprintf("[%*s%s%*s] ", pad/2, "", s, pad-pad/2, "")[:cellWidth]
}

func (t *terminal) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
