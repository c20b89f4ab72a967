package models

import (
	"encoding/json"
	"time"
)

// ========================= Wire Protocol =========================
// Messages exchanged with browser clients over /ws. Seats are 1 and 2.

// WebSocket message structure
type WsMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client → server payloads
type QueueRequest struct {
	Bot bool `json:"bot,omitempty"`
}

type PlaceRequest struct {
	Order    int `json:"order"`
	Position int `json:"position"`
}

type TargetRequest struct {
	Position int `json:"position"`
}

// Server → client payloads
type You struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
	Opponent string `json:"opponent,omitempty"`
}

type Status struct {
	Phase          string `json:"phase"`
	Round          int    `json:"round"`
	BoardSize      int    `json:"board_size"`
	ShipsPerPlayer int    `json:"ships_per_player"`
	NextOrder      int    `json:"next_order,omitempty"` // 0 once the fleet is complete
	TargetLocked   bool   `json:"target_locked,omitempty"`
	Message        string `json:"message,omitempty"`
}

type Placed struct {
	Order    int `json:"order"`
	Position int `json:"position"`
}

// Waiting tells a player that Seat has locked a target in; the target stays hidden.
type Waiting struct {
	Round int `json:"round"`
	Seat  int `json:"seat"`
}

type ShipDamage struct {
	Order     int    `json:"order"`
	Position  int    `json:"position"`
	Known     bool   `json:"known"`
	Percent   int    `json:"percent"`
	Label     string `json:"label"` // "?" or "N%"
	Destroyed bool   `json:"destroyed"`
}

type FleetView struct {
	Seat      int          `json:"seat"`
	Ships     []ShipDamage `json:"ships"`
	Destroyed []int        `json:"destroyed"`
}

type RoundView struct {
	Round   int         `json:"round"`
	Targets [2]int      `json:"targets"` // by seat 1, seat 2
	Fleets  []FleetView `json:"fleets"`
}

type GameOver struct {
	Draw       bool   `json:"draw"`
	WinnerSeat int    `json:"winner_seat,omitempty"`
	Winner     string `json:"winner,omitempty"`
	Rounds     int    `json:"rounds"`
}

type ErrorMsg struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// ========================= Match Records =========================
// Posted by the game server to the records API when a session ends.

type RoundSummary struct {
	Round     int      `json:"round"`
	Targets   [2]int   `json:"targets"`
	Destroyed [2][]int `json:"destroyed"` // positions destroyed so far, by seat
}

type MatchRecord struct {
	ID        string          `json:"id"`
	Player1   string          `json:"player1"`
	Player2   string          `json:"player2"`
	Winner    string          `json:"winner,omitempty"` // empty on a draw
	Draw      bool            `json:"draw"`
	Rounds    int             `json:"rounds"`
	Bot       bool            `json:"bot,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Summaries []RoundSummary  `json:"summaries,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

type PlayerStats struct {
	Name   string `json:"name"`
	Played int    `json:"played"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Draws  int    `json:"draws"`
	// FastestWin is the fewest rounds taken to win, 0 without a win.
	FastestWin int `json:"fastest_win,omitempty"`
}
