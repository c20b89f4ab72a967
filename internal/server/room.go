package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/game"
	"github.com/pefman/quantum-battleships/internal/models"
	"github.com/pefman/quantum-battleships/internal/stats"
)

const resolveTimeout = 30 * time.Second

var errMatchOver = errors.New("match is over")

// Room is one match. Mu guards the session and everything derived from it.
type Room struct {
	ID     string
	P1, P2 *Player
	srv    *Server
	log    *zap.Logger
	// names are the display names used in messages and records; a clash
	// between the two players is disambiguated here.
	names [2]string

	Mu         sync.Mutex
	session    *game.Session
	rng        *rand.Rand
	started    time.Time
	summaries  []models.RoundSummary
	finished   bool
	botPending bool
}

func newRoom(s *Server, p1, p2 *Player) (*Room, error) {
	rules := s.opts.Rules.Current()
	sampler, err := rules.NewSampler()
	if err != nil {
		return nil, fmt.Errorf("build sampler: %w", err)
	}
	id := "room_" + uuid.NewString()
	log := s.log.With(zap.String("room", id))
	sess, err := game.NewSession(rules.Config, sampler,
		game.WithID(id),
		game.WithLogger(s.log),
		game.WithResolveAttempts(s.opts.ResolveAttempts),
	)
	if err != nil {
		return nil, err
	}
	names := [2]string{p1.Name, p2.Name}
	if names[0] == names[1] {
		names[1] += " (2)"
	}
	return &Room{
		ID:      id,
		P1:      p1,
		P2:      p2,
		srv:     s,
		log:     log,
		names:   names,
		session: sess,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		started: time.Now().UTC(),
	}, nil
}

func (r *Room) players() [2]*Player { return [2]*Player{r.P1, r.P2} }

func (r *Room) seatOf(p *Player) game.Player {
	switch p {
	case r.P1:
		return game.PlayerOne
	case r.P2:
		return game.PlayerTwo
	default:
		return game.PlayerNone
	}
}

func (r *Room) playerAt(seat game.Player) *Player {
	if seat == game.PlayerTwo {
		return r.P2
	}
	return r.P1
}

func (r *Room) nameOf(seat game.Player) string {
	if seat == game.PlayerTwo {
		return r.names[1]
	}
	return r.names[0]
}

func (r *Room) broadcast(m models.WsMsg) {
	for _, p := range r.players() {
		r.srv.sendTo(p, m)
	}
}

// Start introduces the players and opens setup.
func (r *Room) Start() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, p := range r.players() {
		seat := r.seatOf(p)
		r.srv.sendTo(p, models.WsMsg{Type: "you", Data: models.You{
			PlayerID: p.ID,
			Name:     r.nameOf(seat),
			Seat:     int(seat),
			RoomID:   r.ID,
			Opponent: r.nameOf(seat.Opponent()),
		}})
	}
	r.broadcastStatus("Match found. Place your ships.")
	r.scheduleBot()
}

// Place handles a client's ship placement.
func (r *Room) Place(p *Player, order, pos int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if err := r.place(p, order, pos); err != nil {
		r.srv.sendError(p, err)
		return
	}
	r.scheduleBot()
}

// Target handles a client's target for the current round.
func (r *Room) Target(p *Player, pos int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if err := r.target(p, pos); err != nil {
		r.srv.sendError(p, err)
		return
	}
	r.scheduleBot()
}

// Retry resolves a round again after its sampler failed.
func (r *Room) Retry(p *Player) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.finished {
		r.srv.sendError(p, errMatchOver)
		return
	}
	if ph := r.session.Phase(); ph != game.PhaseResolving {
		r.srv.sendError(p, fmt.Errorf("%w: nothing to resolve during %s", game.ErrWrongPhase, ph))
		return
	}
	r.resolve()
	r.scheduleBot()
}

// SendStatus tells p where the match stands.
func (r *Room) SendStatus(p *Player, msg string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.srv.sendTo(p, models.WsMsg{Type: "status", Data: r.status(p, msg)})
}

// Progress reports the phase name and round number.
func (r *Room) Progress() (string, int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.finished && r.session.Phase() != game.PhaseGameOver {
		return "abandoned", r.session.Round()
	}
	return r.session.Phase().String(), r.session.Round()
}

// Leave abandons an unfinished match when a player disconnects.
func (r *Room) Leave(p *Player) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.log.Info("room: abandoned", zap.String("player", p.ID), zap.Int("round", r.session.Round()))
	other := r.playerAt(r.seatOf(p).Opponent())
	r.srv.sendTo(other, models.WsMsg{Type: "status", Data: models.Status{
		Phase:   "abandoned",
		Round:   r.session.Round(),
		Message: "Opponent left. Match abandoned.",
	}})
	r.srv.removeRoom(r)
}

// The helpers below expect Mu to be held.

func (r *Room) place(p *Player, order, pos int) error {
	if r.finished {
		return errMatchOver
	}
	seat := r.seatOf(p)
	if err := r.session.Place(seat, order, game.Position(pos)); err != nil {
		return err
	}
	r.srv.sendTo(p, models.WsMsg{Type: "placed", Data: models.Placed{Order: order, Position: pos}})
	if r.session.Phase() == game.PhaseCollectingTargets {
		r.broadcastStatus("All ships placed. Choose a target.")
		return nil
	}
	msg := "Fleet complete. Waiting for opponent."
	if r.session.NextOrder(seat) != 0 {
		msg = ""
	}
	r.srv.sendTo(p, models.WsMsg{Type: "status", Data: r.status(p, msg)})
	return nil
}

func (r *Room) target(p *Player, pos int) error {
	if r.finished {
		return errMatchOver
	}
	seat := r.seatOf(p)
	if err := r.session.SubmitTarget(seat, game.Position(pos)); err != nil {
		return err
	}
	round := r.session.Round()
	r.srv.sendTo(p, models.WsMsg{Type: "status", Data: r.status(p, "Target locked. Waiting for opponent.")})
	r.srv.sendTo(r.playerAt(seat.Opponent()), models.WsMsg{Type: "waiting", Data: models.Waiting{Round: round, Seat: int(seat)}})
	if r.session.Phase() == game.PhaseResolving {
		r.resolve()
	}
	return nil
}

func (r *Room) resolve() {
	ctx, cancel := context.WithTimeout(r.srv.ctx, resolveTimeout)
	defer cancel()
	res, err := r.session.ResolveWithRetry(ctx)
	if err != nil {
		r.log.Error("round could not be resolved", zap.Int("round", r.session.Round()), zap.Error(err))
		r.broadcast(models.WsMsg{Type: "error", Data: models.ErrorMsg{
			Message:     fmt.Sprintf("round %d could not be measured; send resolve to try again: %v", r.session.Round(), err),
			Recoverable: true,
		}})
		return
	}
	r.summaries = append(r.summaries, roundSummary(res))
	for _, p := range r.players() {
		r.srv.sendTo(p, models.WsMsg{Type: "round", Data: roundView(res, r.seatOf(p))})
	}
	if res.Outcome.Over {
		r.finish(res)
		return
	}
	r.broadcastStatus(fmt.Sprintf("Round %d measured. Choose a target.", res.Number))
}

func (r *Room) finish(last game.RoundResult) {
	r.finished = true
	out := last.Outcome
	over := models.GameOver{Draw: out.Draw, Rounds: last.Number}
	winner := ""
	if !out.Draw {
		winner = r.nameOf(out.Winner)
		over.WinnerSeat = int(out.Winner)
		over.Winner = winner
	}
	stats.RecordMatch(r.names[0], r.names[1], winner, last.Number)
	r.broadcast(models.WsMsg{Type: "gameover", Data: over})
	r.log.Info("room: finished", zap.Stringer("outcome", out), zap.Int("rounds", last.Number))

	rec := r.record(winner, out.Draw, last.Number)
	go r.srv.postRecord(rec)
	r.srv.removeRoom(r)
}

func (r *Room) record(winner string, draw bool, rounds int) models.MatchRecord {
	rec := models.MatchRecord{
		ID:        r.session.ID(),
		Player1:   r.names[0],
		Player2:   r.names[1],
		Winner:    winner,
		Draw:      draw,
		Rounds:    rounds,
		Bot:       r.bot() != nil,
		StartedAt: r.started,
		EndedAt:   time.Now().UTC(),
		Summaries: append([]models.RoundSummary(nil), r.summaries...),
	}
	if snap, err := json.Marshal(r.session.Snapshot()); err == nil {
		rec.Snapshot = snap
	} else {
		r.log.Warn("snapshot encode failed", zap.Error(err))
	}
	return rec
}

func (r *Room) status(p *Player, msg string) models.Status {
	seat := r.seatOf(p)
	cfg := r.session.Config()
	st := models.Status{
		Phase:          r.session.Phase().String(),
		Round:          r.session.Round(),
		BoardSize:      cfg.BoardSize,
		ShipsPerPlayer: cfg.ShipsPerPlayer,
		TargetLocked:   r.session.Submitted(seat),
		Message:        msg,
	}
	if r.session.Phase() == game.PhaseSetup {
		st.NextOrder = r.session.NextOrder(seat)
	}
	return st
}

func (r *Room) broadcastStatus(msg string) {
	for _, p := range r.players() {
		r.srv.sendTo(p, models.WsMsg{Type: "status", Data: r.status(p, msg)})
	}
}

// roundView shows viewer its own fleet in full and the opponent's ships only
// where they have been hit.
func roundView(res game.RoundResult, viewer game.Player) models.RoundView {
	v := models.RoundView{
		Round:   res.Number,
		Targets: [2]int{int(res.Targets[game.PlayerOne]), int(res.Targets[game.PlayerTwo])},
	}
	for _, fleet := range res.Fleets {
		own := fleet.Owner == viewer
		fv := models.FleetView{Seat: int(fleet.Owner), Ships: []models.ShipDamage{}, Destroyed: []int{}}
		for _, sh := range fleet.Ships {
			if !own && !sh.Damage.Known {
				continue
			}
			fv.Ships = append(fv.Ships, models.ShipDamage{
				Order:     sh.Order,
				Position:  int(sh.Position),
				Known:     sh.Damage.Known,
				Percent:   sh.Damage.Percent,
				Label:     sh.Damage.String(),
				Destroyed: sh.Destroyed,
			})
			if sh.Destroyed {
				fv.Destroyed = append(fv.Destroyed, int(sh.Position))
			}
		}
		sort.Ints(fv.Destroyed)
		v.Fleets = append(v.Fleets, fv)
	}
	return v
}

func roundSummary(res game.RoundResult) models.RoundSummary {
	sum := models.RoundSummary{
		Round:   res.Number,
		Targets: [2]int{int(res.Targets[game.PlayerOne]), int(res.Targets[game.PlayerTwo])},
	}
	for i, seat := range game.Players {
		destroyed := []int{}
		for _, pos := range res.Fleet(seat).DestroyedSet() {
			destroyed = append(destroyed, int(pos))
		}
		sum.Destroyed[i] = destroyed
	}
	return sum
}
