package server

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/game"
)

// makeBot creates a server-side opponent. It has no connection; the room
// drives it.
func (s *Server) makeBot() *Player {
	return &Player{ID: "bot_" + uuid.NewString(), Name: botNameBase, IsBot: true}
}

func (r *Room) bot() *Player {
	for _, p := range r.players() {
		if p.IsBot {
			return p
		}
	}
	return nil
}

// scheduleBot lets the bot act if the match is waiting on it. Mu must be held.
func (r *Room) scheduleBot() {
	b := r.bot()
	if b == nil || r.finished || r.botPending {
		return
	}
	seat := r.seatOf(b)
	switch r.session.Phase() {
	case game.PhaseSetup:
		if r.session.NextOrder(seat) == 0 {
			return
		}
	case game.PhaseCollectingTargets:
		if r.session.Submitted(seat) {
			return
		}
	default:
		return
	}
	r.botPending = true
	go r.botAct(b)
}

func (r *Room) botAct(b *Player) {
	if d := r.srv.opts.BotDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-r.srv.ctx.Done():
			t.Stop()
			return
		}
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.botPending = false
	if r.finished {
		return
	}
	seat := r.seatOf(b)
	switch r.session.Phase() {
	case game.PhaseSetup:
		for order := r.session.NextOrder(seat); order != 0; order = r.session.NextOrder(seat) {
			if err := r.place(b, order, r.botFreePosition(seat)); err != nil {
				r.log.Warn("bot placement rejected", zap.Int("order", order), zap.Error(err))
				return
			}
		}
	case game.PhaseCollectingTargets:
		if !r.session.Submitted(seat) {
			pos := r.rng.Intn(r.session.Config().BoardSize)
			if err := r.target(b, pos); err != nil {
				r.log.Warn("bot target rejected", zap.Int("position", pos), zap.Error(err))
				return
			}
		}
	}
	r.scheduleBot()
}

// botFreePosition picks a random cell the bot's fleet does not occupy yet.
func (r *Room) botFreePosition(seat game.Player) int {
	used := make(map[game.Position]bool)
	for _, sh := range r.session.Ships(seat) {
		used[sh.Position] = true
	}
	var free []int
	for pos := 0; pos < r.session.Config().BoardSize; pos++ {
		if !used[game.Position(pos)] {
			free = append(free, pos)
		}
	}
	return free[r.rng.Intn(len(free))]
}
