package game

import (
	"fmt"
	"strconv"
)

// Player identifies one side of a two-player session.
type Player int

const (
	PlayerNone Player = iota
	PlayerOne
	PlayerTwo
)

// Players lists both sides in turn order.
var Players = [2]Player{PlayerOne, PlayerTwo}

// Valid reports whether p names one of the two players.
func (p Player) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

// Opponent returns the other player. PlayerNone has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	default:
		return PlayerNone
	}
}

func (p Player) String() string {
	switch p {
	case PlayerOne:
		return "player 1"
	case PlayerTwo:
		return "player 2"
	default:
		return "no player"
	}
}

// index maps a valid player onto 0 or 1.
func (p Player) index() int {
	return int(p) - 1
}

// Position is a cell on a player's board, numbered from zero.
type Position int

func (p Position) String() string {
	return strconv.Itoa(int(p))
}

// Defaults for a standard session.
const (
	DefaultSamples          = 1024
	DefaultBoardSize        = 5
	DefaultShipsPerPlayer   = 3
	DefaultDestroyThreshold = 95
)

// Config holds the tunable rules of a session.
type Config struct {
	// Samples is the number of measurements drawn per ship per round.
	Samples int `json:"samples" mapstructure:"samples"`
	// BoardSize is the number of positions on each board.
	BoardSize int `json:"board_size" mapstructure:"board_size"`
	// ShipsPerPlayer is both the fleet size and the highest order index.
	ShipsPerPlayer int `json:"ships_per_player" mapstructure:"ships_per_player"`
	// DestroyThreshold is the damage percentage at which a ship counts as destroyed.
	DestroyThreshold int `json:"destroy_threshold" mapstructure:"destroy_threshold"`
}

// DefaultConfig returns the standard five-cell, three-ship rules.
func DefaultConfig() Config {
	return Config{
		Samples:          DefaultSamples,
		BoardSize:        DefaultBoardSize,
		ShipsPerPlayer:   DefaultShipsPerPlayer,
		DestroyThreshold: DefaultDestroyThreshold,
	}
}

// Validate checks the rules are internally consistent.
func (c Config) Validate() error {
	switch {
	case c.Samples <= 0:
		return fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidConfig, c.Samples)
	case c.BoardSize <= 0:
		return fmt.Errorf("%w: board size must be positive, got %d", ErrInvalidConfig, c.BoardSize)
	case c.ShipsPerPlayer <= 0:
		return fmt.Errorf("%w: ships per player must be positive, got %d", ErrInvalidConfig, c.ShipsPerPlayer)
	case c.ShipsPerPlayer > c.BoardSize:
		return fmt.Errorf("%w: %d ships do not fit on %d positions", ErrInvalidConfig, c.ShipsPerPlayer, c.BoardSize)
	case c.DestroyThreshold <= 0 || c.DestroyThreshold > 100:
		return fmt.Errorf("%w: destroy threshold must be within 1-100, got %d", ErrInvalidConfig, c.DestroyThreshold)
	}
	return nil
}

// ValidPosition reports whether pos lies on the board.
func (c Config) ValidPosition(pos Position) bool {
	return pos >= 0 && int(pos) < c.BoardSize
}

// ValidOrder reports whether order is a legal ship order index.
func (c Config) ValidOrder(order int) bool {
	return order >= 1 && order <= c.ShipsPerPlayer
}

// Ship is one placed piece. Order is 1 for the first ship placed, 2 for the
// second and so on.
type Ship struct {
	Owner    Player   `json:"owner"`
	Order    int      `json:"order"`
	Position Position `json:"position"`
}

// Resilience is the fraction of a full flip contributed by one attack.
func (s Ship) Resilience() float64 {
	return 1 / float64(s.Order)
}

// Placement is a request to put the ship with the given order at a position.
type Placement struct {
	Order    int      `json:"order"`
	Position Position `json:"position"`
}
