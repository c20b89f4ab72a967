package game

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Phase is a step of the session state machine.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseCollectingTargets
	PhaseResolving
	PhaseReporting
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseCollectingTargets:
		return "collecting_targets"
	case PhaseResolving:
		return "resolving"
	case PhaseReporting:
		return "reporting"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// ShipReport is the measured state of one ship in a round.
type ShipReport struct {
	Order     int      `json:"order"`
	Position  Position `json:"position"`
	Damage    Damage   `json:"damage"`
	Destroyed bool     `json:"destroyed"`
}

// FleetReport collects the ship reports of one player.
type FleetReport struct {
	Owner Player       `json:"owner"`
	Ships []ShipReport `json:"ships"`
}

// Mapping returns damage keyed by ship position.
func (f FleetReport) Mapping() map[Position]Damage {
	out := make(map[Position]Damage, len(f.Ships))
	for _, s := range f.Ships {
		out[s.Position] = s.Damage
	}
	return out
}

// DestroyedSet returns the positions of destroyed ships in ascending order.
func (f FleetReport) DestroyedSet() []Position {
	var out []Position
	for _, s := range f.Ships {
		if s.Destroyed {
			out = append(out, s.Position)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DestroyedCount returns how many ships were destroyed.
func (f FleetReport) DestroyedCount() int {
	n := 0
	for _, s := range f.Ships {
		if s.Destroyed {
			n++
		}
	}
	return n
}

// AllDestroyed reports whether the fleet is non-empty and entirely destroyed.
func (f FleetReport) AllDestroyed() bool {
	return len(f.Ships) > 0 && f.DestroyedCount() == len(f.Ships)
}

// Outcome describes how a session ended, if it has.
type Outcome struct {
	Over   bool   `json:"over"`
	Winner Player `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
}

func (o Outcome) String() string {
	switch {
	case !o.Over:
		return "in progress"
	case o.Draw:
		return "draw"
	default:
		return o.Winner.String() + " wins"
	}
}

// RoundResult is everything measured in one round.
type RoundResult struct {
	Number  int                 `json:"number"`
	Targets map[Player]Position `json:"targets"`
	Fleets  [2]FleetReport      `json:"fleets"`
	Outcome Outcome             `json:"outcome"`
}

// Fleet returns the report for p's fleet.
func (r RoundResult) Fleet(p Player) FleetReport {
	if !p.Valid() {
		return FleetReport{}
	}
	return r.Fleets[p.index()]
}

// RoundEngine runs rounds over a sealed registry and a ledger.
type RoundEngine struct {
	cfg      Config
	registry *Registry
	ledger   *Ledger
	model    *DamageModel
	log      *zap.Logger

	phase   Phase
	round   int
	targets map[Player]Position
	last    RoundResult
}

// NewRoundEngine returns an engine waiting for the first round's targets.
func NewRoundEngine(cfg Config, registry *Registry, ledger *Ledger, model *DamageModel, log *zap.Logger) *RoundEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &RoundEngine{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		model:    model,
		log:      log,
		phase:    PhaseCollectingTargets,
		round:    1,
		targets:  make(map[Player]Position, 2),
	}
}

// Phase returns the engine's current phase.
func (e *RoundEngine) Phase() Phase {
	return e.phase
}

// Round returns the number of the round being played, starting at 1.
func (e *RoundEngine) Round() int {
	return e.round
}

// Submitted reports whether p has committed a target this round.
func (e *RoundEngine) Submitted(p Player) bool {
	_, ok := e.targets[p]
	return ok
}

// SubmitTarget commits p's target for the current round. Once both players
// have submitted, the engine moves to PhaseResolving.
func (e *RoundEngine) SubmitTarget(p Player, pos Position) error {
	if e.phase != PhaseCollectingTargets {
		return fmt.Errorf("%w: submit target during %s", ErrWrongPhase, e.phase)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPlayer, p)
	}
	if !e.cfg.ValidPosition(pos) {
		return fmt.Errorf("%w: %s targeted %d", ErrInvalidPosition, p, pos)
	}
	if e.Submitted(p) {
		return fmt.Errorf("%w: %s in round %d", ErrTargetAlreadySubmitted, p, e.round)
	}
	e.targets[p] = pos
	if len(e.targets) == len(Players) {
		e.phase = PhaseResolving
	}
	return nil
}

// Resolve measures every ship of both players including this round's
// attacks, then records the attacks in the ledger. When sampling fails the
// ledger is untouched, the phase stays PhaseResolving and Resolve may be
// called again. On success the engine stops in PhaseReporting until Advance.
func (e *RoundEngine) Resolve(ctx context.Context) (RoundResult, error) {
	if e.phase != PhaseResolving {
		return RoundResult{}, fmt.Errorf("%w: resolve during %s", ErrWrongPhase, e.phase)
	}

	result := RoundResult{
		Number:  e.round,
		Targets: make(map[Player]Position, len(e.targets)),
	}
	for p, pos := range e.targets {
		result.Targets[p] = pos
	}

	for _, defender := range Players {
		incoming := e.targets[defender.Opponent()]
		fleet := FleetReport{Owner: defender}
		for _, ship := range e.registry.Ships(defender) {
			attacks := e.ledger.AttacksOn(defender, ship.Position)
			if ship.Position == incoming {
				attacks++
			}
			dmg, err := e.model.Assess(ctx, attacks, ship.Resilience())
			if err != nil {
				e.log.Warn("round measurement failed",
					zap.Int("round", e.round),
					zap.Stringer("defender", defender),
					zap.Int("order", ship.Order),
					zap.Error(err))
				return RoundResult{}, fmt.Errorf("resolve round %d: %w", e.round, err)
			}
			fleet.Ships = append(fleet.Ships, ShipReport{
				Order:     ship.Order,
				Position:  ship.Position,
				Damage:    dmg,
				Destroyed: dmg.Known && dmg.Percent >= e.cfg.DestroyThreshold,
			})
		}
		result.Fleets[defender.index()] = fleet
	}

	for _, attacker := range Players {
		if err := e.ledger.RecordAttack(attacker, e.targets[attacker]); err != nil {
			return RoundResult{}, fmt.Errorf("record attack: %w", err)
		}
	}

	result.Outcome = evaluate(result.Fleets)
	e.phase = PhaseReporting
	e.last = result

	e.log.Debug("round resolved",
		zap.Int("round", e.round),
		zap.Int("p1_destroyed", result.Fleets[0].DestroyedCount()),
		zap.Int("p2_destroyed", result.Fleets[1].DestroyedCount()),
		zap.Stringer("outcome", result.Outcome))
	return result, nil
}

// Advance leaves PhaseReporting, either ending the game or opening the next
// round for targets.
func (e *RoundEngine) Advance() error {
	if e.phase != PhaseReporting {
		return fmt.Errorf("%w: advance during %s", ErrWrongPhase, e.phase)
	}
	if e.last.Outcome.Over {
		e.phase = PhaseGameOver
		return nil
	}
	e.round++
	e.targets = make(map[Player]Position, 2)
	e.phase = PhaseCollectingTargets
	return nil
}

// restore positions the engine at the start of round with no targets.
func (e *RoundEngine) restore(round int, over bool) {
	e.round = round
	e.targets = make(map[Player]Position, 2)
	e.phase = PhaseCollectingTargets
	if over {
		e.phase = PhaseGameOver
	}
}

func evaluate(fleets [2]FleetReport) Outcome {
	oneDown := fleets[PlayerOne.index()].AllDestroyed()
	twoDown := fleets[PlayerTwo.index()].AllDestroyed()
	switch {
	case oneDown && twoDown:
		return Outcome{Over: true, Draw: true}
	case oneDown:
		return Outcome{Over: true, Winner: PlayerTwo}
	case twoDown:
		return Outcome{Over: true, Winner: PlayerOne}
	default:
		return Outcome{}
	}
}
