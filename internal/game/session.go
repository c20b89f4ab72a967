package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/engine"
)

// DefaultResolveAttempts is how many times Play resolves a round whose
// sampler is unavailable before giving up.
const DefaultResolveAttempts = 3

// Input supplies player decisions to Play.
type Input interface {
	ShipPlacement(ctx context.Context, p Player) (Placement, error)
	Target(ctx context.Context, p Player) (Position, error)
}

// Display receives what Play wants shown to the players.
type Display interface {
	// Rejected is called when an input was refused and will be asked for again.
	Rejected(ctx context.Context, p Player, err error) error
	RoundResult(ctx context.Context, round int, fleet FleetReport) error
	GameOver(ctx context.Context, outcome Outcome) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithResolveAttempts sets how often Play retries an unavailable sampler.
func WithResolveAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.resolveAttempts = n
		}
	}
}

// Session owns one game from setup to game over. It is not safe for
// concurrent use; callers serialise access.
type Session struct {
	id              string
	cfg             Config
	registry        *Registry
	ledger          *Ledger
	model           *DamageModel
	engine          *RoundEngine
	log             *zap.Logger
	resolveAttempts int

	history []RoundResult
	outcome Outcome
}

// NewSession starts a session in setup with a fresh registry and ledger.
func NewSession(cfg Config, sampler engine.Sampler, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: no sampler configured", ErrInvalidConfig)
	}
	s := &Session{
		id:              uuid.NewString(),
		cfg:             cfg,
		registry:        NewRegistry(cfg),
		ledger:          NewLedger(cfg.BoardSize),
		model:           NewDamageModel(sampler, cfg.Samples),
		log:             zap.NewNop(),
		resolveAttempts: DefaultResolveAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", s.id))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the session rules.
func (s *Session) Config() Config { return s.cfg }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	if s.engine == nil {
		return PhaseSetup
	}
	return s.engine.Phase()
}

// Round returns the round being played, or 0 during setup.
func (s *Session) Round() int {
	if s.engine == nil {
		return 0
	}
	return s.engine.Round()
}

// Outcome returns the result; Over is false until the game ends.
func (s *Session) Outcome() Outcome { return s.outcome }

// History returns the results of every resolved round.
func (s *Session) History() []RoundResult {
	return append([]RoundResult(nil), s.history...)
}

// Ships returns p's placed ships.
func (s *Session) Ships(p Player) []Ship { return s.registry.Ships(p) }

// NextOrder returns the next order index p should place, or 0 when done.
func (s *Session) NextOrder(p Player) int { return s.registry.NextOrder(p) }

// ResilienceOf exposes the registry lookup.
func (s *Session) ResilienceOf(p Player, pos Position) (float64, bool) {
	return s.registry.ResilienceOf(p, pos)
}

// AttacksOn exposes the ledger lookup.
func (s *Session) AttacksOn(defender Player, pos Position) int {
	return s.ledger.AttacksOn(defender, pos)
}

// Submitted reports whether p has a target committed for the current round.
func (s *Session) Submitted(p Player) bool {
	return s.engine != nil && s.engine.Submitted(p)
}

// Place records a ship placement. When both fleets are complete setup ends
// and the first round opens.
func (s *Session) Place(p Player, order int, pos Position) error {
	if s.Phase() != PhaseSetup {
		return fmt.Errorf("%w: setup has ended", ErrInvalidPlacement)
	}
	if err := s.registry.Place(p, order, pos); err != nil {
		return err
	}
	s.log.Debug("ship placed", zap.Stringer("player", p), zap.Int("order", order), zap.Int("position", int(pos)))
	if s.registry.Complete(PlayerOne) && s.registry.Complete(PlayerTwo) {
		s.registry.Seal()
		s.engine = NewRoundEngine(s.cfg, s.registry, s.ledger, s.model, s.log)
		s.log.Info("setup complete")
	}
	return nil
}

// SubmitTarget commits p's target for the current round.
func (s *Session) SubmitTarget(p Player, pos Position) error {
	if s.engine == nil {
		return fmt.Errorf("%w: submit target during %s", ErrWrongPhase, PhaseSetup)
	}
	return s.engine.SubmitTarget(p, pos)
}

// Resolve measures the round once both targets are in and advances to the
// next round or to game over.
func (s *Session) Resolve(ctx context.Context) (RoundResult, error) {
	if s.engine == nil {
		return RoundResult{}, fmt.Errorf("%w: resolve during %s", ErrWrongPhase, PhaseSetup)
	}
	res, err := s.engine.Resolve(ctx)
	if err != nil {
		return RoundResult{}, err
	}
	s.history = append(s.history, res)
	if err := s.engine.Advance(); err != nil {
		return RoundResult{}, err
	}
	if res.Outcome.Over {
		s.outcome = res.Outcome
		s.log.Info("game over", zap.Int("round", res.Number), zap.Stringer("outcome", res.Outcome))
	}
	return res, nil
}

// Play drives the whole session through in and out. Rejected inputs are
// reported to out and asked for again; a round whose sampler is unavailable
// is resolved again up to the configured number of attempts.
func (s *Session) Play(ctx context.Context, in Input, out Display) (Outcome, error) {
	for _, p := range Players {
		for !s.registry.Complete(p) {
			pl, err := in.ShipPlacement(ctx, p)
			if err != nil {
				return Outcome{}, fmt.Errorf("placement for %s: %w", p, err)
			}
			if err := s.Place(p, pl.Order, pl.Position); err != nil {
				if !IsRecoverable(err) {
					return Outcome{}, err
				}
				if err := out.Rejected(ctx, p, err); err != nil {
					return Outcome{}, err
				}
			}
		}
	}

	for s.Phase() != PhaseGameOver {
		for _, p := range Players {
			for !s.engine.Submitted(p) {
				pos, err := in.Target(ctx, p)
				if err != nil {
					return Outcome{}, fmt.Errorf("target for %s: %w", p, err)
				}
				if err := s.SubmitTarget(p, pos); err != nil {
					if !IsRecoverable(err) {
						return Outcome{}, err
					}
					if err := out.Rejected(ctx, p, err); err != nil {
						return Outcome{}, err
					}
				}
			}
		}

		res, err := s.ResolveWithRetry(ctx)
		if err != nil {
			return Outcome{}, err
		}
		for _, fleet := range res.Fleets {
			if err := out.RoundResult(ctx, res.Number, fleet); err != nil {
				return Outcome{}, err
			}
		}
	}

	if err := out.GameOver(ctx, s.outcome); err != nil {
		return Outcome{}, err
	}
	return s.outcome, nil
}

// ResolveWithRetry is Resolve, repeated while the sampler is unavailable and
// attempts remain.
func (s *Session) ResolveWithRetry(ctx context.Context) (RoundResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.resolveAttempts; attempt++ {
		res, err := s.Resolve(ctx)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrSamplerUnavailable) || ctx.Err() != nil {
			return RoundResult{}, err
		}
		lastErr = err
		s.log.Warn("retrying round", zap.Int("round", s.Round()), zap.Int("attempt", attempt), zap.Error(err))
	}
	return RoundResult{}, lastErr
}
