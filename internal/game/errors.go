package game

import "errors"

// ErrInvalidPlacement indicates a duplicate position, a bad or repeated order
// index, or a placement after setup ended.
var ErrInvalidPlacement = errors.New("invalid ship placement")

// ErrInvalidPosition indicates a target or placement outside the board.
var ErrInvalidPosition = errors.New("position is outside the board")

// ErrInvalidResilience indicates a resilience outside (0, 1].
var ErrInvalidResilience = errors.New("resilience must be within (0, 1]")

// ErrInvalidAttackCount indicates a negative attack count, or more attacks
// than the rounds played allow.
var ErrInvalidAttackCount = errors.New("invalid attack count")

// ErrInvalidPlayer indicates a player other than PlayerOne or PlayerTwo.
var ErrInvalidPlayer = errors.New("unknown player")

// ErrInvalidConfig indicates inconsistent session rules.
var ErrInvalidConfig = errors.New("invalid game config")

// ErrTargetAlreadySubmitted indicates a second target from the same player in one round.
var ErrTargetAlreadySubmitted = errors.New("target already submitted this round")

// ErrWrongPhase indicates an operation that the current phase does not accept.
var ErrWrongPhase = errors.New("operation not allowed in current phase")

// ErrSamplerUnavailable indicates the measurement backend could not produce a
// result. The round can be resolved again.
var ErrSamplerUnavailable = errors.New("sampler unavailable")

// IsRecoverable reports whether err is a rejected input that the caller
// should answer by asking the player again.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidPlacement) ||
		errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrTargetAlreadySubmitted)
}
