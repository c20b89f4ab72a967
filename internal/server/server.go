// Package server runs quantum battleships matches for websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/api"
	"github.com/pefman/quantum-battleships/internal/config"
	"github.com/pefman/quantum-battleships/internal/models"
	"github.com/pefman/quantum-battleships/internal/stats"
)

// RulesSource yields the rules for a new match.
type RulesSource interface {
	Current() config.Rules
}

// MatchRecorder stores finished matches; *api.Client is the production one.
type MatchRecorder interface {
	PostMatch(ctx context.Context, rec models.MatchRecord) error
}

type fixedRules config.Rules

func (f fixedRules) Current() config.Rules { return config.Rules(f) }

// MatchArchive reads stored matches and lifetime player stats.
type MatchArchive interface {
	GetMatch(ctx context.Context, id string) (models.MatchRecord, error)
	PlayerStats(ctx context.Context, name string) (models.PlayerStats, error)
}

// Options configures a Server.
type Options struct {
	Rules RulesSource
	// Records is optional; without it finished matches only feed the in-memory stats.
	Records MatchRecorder
	// Archive is optional; without it player stats come from this process only.
	Archive MatchArchive
	Log     *zap.Logger
	// BotDelay is the pause before a bot acts.
	BotDelay time.Duration
	// ResolveAttempts bounds retries of a round whose sampler is unavailable.
	ResolveAttempts int
	Version         string
	BuildTime       string
}

// Server owns the matchmaking queue and every live room.
type Server struct {
	ctx  context.Context
	opts Options
	log  *zap.Logger

	queue chan *Player

	roomsMu      sync.Mutex
	rooms        map[string]*Room
	playersIndex sync.Map // player id -> *Room

	// Lobby of connected players not in a match
	lobbyMu sync.Mutex
	lobby   map[string]LobbyEntry
}

// LobbyEntry is a player waiting outside a match, exposed via /lobby.
type LobbyEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Queued bool   `json:"queued"`
	Since  int64  `json:"since"` // unix seconds
}

// New builds a server whose matchmaker runs until ctx is done.
func New(ctx context.Context, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Rules == nil {
		opts.Rules = fixedRules(config.DefaultRules())
	}
	if opts.ResolveAttempts <= 0 {
		opts.ResolveAttempts = 3
	}
	s := &Server{
		ctx:   ctx,
		opts:  opts,
		log:   opts.Log,
		queue: make(chan *Player, 32),
		rooms: make(map[string]*Room),
		lobby: make(map[string]LobbyEntry),
	}
	go s.matchmaker()
	return s
}

// Handler routes the websocket endpoint and the public JSON endpoints.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/lobby", s.handleLobby).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/daily", s.handleLeaderboardDaily).Methods(http.MethodGet)
	r.HandleFunc("/players/{name}/stats", s.handlePlayerStats).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}", s.handleMatch).Methods(http.MethodGet)
	r.HandleFunc("/debug/rooms", s.handleDebugRooms).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": s.opts.Version, "time": s.opts.BuildTime})
	}).Methods(http.MethodGet)
	return r
}

// ----------------- Matchmaker -----------------

func (s *Server) enqueue(p *Player) {
	s.lobbyMarkQueued(p.ID, true)
	if p.WantsBot {
		// A bot match replaces any pending human queue entry.
		p.queued.Store(false)
		s.log.Info("queue: bot opponent requested", zap.String("player", p.ID))
		if !s.createRoom(p, s.makeBot()) {
			s.sendError(p, errors.Join(errBadMessage, errAlreadySeated))
		}
		return
	}
	p.queued.Store(true)
	select {
	case s.queue <- p:
		s.log.Info("queue: enqueued", zap.String("player", p.ID), zap.Int("queue_len", len(s.queue)))
	case <-s.ctx.Done():
	}
}

// matchmaker pairs queued humans first come, first served.
func (s *Server) matchmaker() {
	var waiting *Player
	for {
		select {
		case <-s.ctx.Done():
			return
		case p := <-s.queue:
			if waiting != nil && !s.stillQueued(waiting) {
				s.log.Debug("matchmaker: dropping stale entry", zap.String("player", waiting.ID))
				waiting = nil
			}
			if p == waiting || !s.stillQueued(p) {
				continue
			}
			if waiting == nil {
				waiting = p
				continue
			}
			if s.createRoom(waiting, p) {
				waiting = nil
				continue
			}
			// One of them was seated elsewhere in the meantime; keep the other.
			switch {
			case s.stillQueued(waiting):
			case s.stillQueued(p):
				waiting = p
			default:
				waiting = nil
			}
		}
	}
}

// stillQueued reports whether p is connected, waiting for a human and not
// already seated elsewhere.
func (s *Server) stillQueued(p *Player) bool {
	return !p.Closed() && p.queued.Load() && s.roomOf(p) == nil
}

// createRoom seats p1 and p2 in a new room. It reports false, leaving both
// untouched, when either is already seated. Seats are claimed under roomsMu so
// the matchmaker and a bot request cannot both take the same player.
func (s *Server) createRoom(p1, p2 *Player) bool {
	s.roomsMu.Lock()
	if s.roomOf(p1) != nil || s.roomOf(p2) != nil {
		s.roomsMu.Unlock()
		s.log.Debug("room: player already seated", zap.String("p1", p1.ID), zap.String("p2", p2.ID))
		return false
	}
	r, err := newRoom(s, p1, p2)
	if err != nil {
		s.roomsMu.Unlock()
		s.log.Error("room: create failed", zap.Error(err))
		s.sendError(p1, err)
		s.sendError(p2, err)
		return true
	}
	p1.queued.Store(false)
	p2.queued.Store(false)
	s.rooms[r.ID] = r
	s.playersIndex.Store(p1.ID, r)
	s.playersIndex.Store(p2.ID, r)
	s.roomsMu.Unlock()

	s.lobbyDelete(p1.ID)
	s.lobbyDelete(p2.ID)
	s.log.Info("room: created", zap.String("room", r.ID),
		zap.String("p1", p1.Name), zap.String("p2", p2.Name), zap.Bool("bot", p2.IsBot))
	r.Start()
	return true
}

func (s *Server) postRecord(rec models.MatchRecord) {
	if s.opts.Records == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.opts.Records.PostMatch(ctx, rec); err != nil {
		s.log.Warn("post match record failed", zap.String("match", rec.ID), zap.Error(err))
		return
	}
	s.log.Info("match recorded", zap.String("match", rec.ID))
}

func (s *Server) roomOf(p *Player) *Room {
	v, ok := s.playersIndex.Load(p.ID)
	if !ok {
		return nil
	}
	return v.(*Room)
}

// removeRoom forgets a finished room; its humans return to the lobby.
func (s *Server) removeRoom(r *Room) {
	s.roomsMu.Lock()
	delete(s.rooms, r.ID)
	s.roomsMu.Unlock()
	for _, p := range r.players() {
		s.playersIndex.Delete(p.ID)
		if !p.IsBot && !p.Closed() {
			s.lobbySet(p, false)
		}
	}
}

// ----------------- Lobby -----------------

func (s *Server) lobbySet(p *Player, queued bool) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	e, ok := s.lobby[p.ID]
	if !ok {
		e = LobbyEntry{ID: p.ID, Name: p.Name, Since: time.Now().Unix()}
	}
	e.Queued = queued
	s.lobby[p.ID] = e
}

func (s *Server) lobbyMarkQueued(playerID string, queued bool) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	if e, ok := s.lobby[playerID]; ok {
		e.Queued = queued
		s.lobby[playerID] = e
	}
}

func (s *Server) lobbyDelete(playerID string) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	delete(s.lobby, playerID)
}

// ----------------- HTTP -----------------

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	s.lobbyMu.Lock()
	out := make([]LobbyEntry, 0, len(s.lobby))
	for _, e := range s.lobby {
		out = append(out, e)
	}
	s.lobbyMu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since != out[j].Since {
			return out[i].Since < out[j].Since
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, stats.Leaderboard(limit))
}

func (s *Server) handleLeaderboardDaily(w http.ResponseWriter, r *http.Request) {
	fw, ok := stats.FastestWinToday()
	if !ok {
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, fw)
}

// handlePlayerStats prefers the archive's lifetime totals and falls back to
// the tallies of this process when the archive is missing or unreachable.
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if s.opts.Archive != nil {
		st, err := s.opts.Archive.PlayerStats(r.Context(), name)
		if err == nil {
			writeJSON(w, st)
			return
		}
		s.log.Warn("archive stats unavailable, using local tallies", zap.String("name", name), zap.Error(err))
	}
	writeJSON(w, stats.GetUserStats(name))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.opts.Archive == nil {
		writeError(w, http.StatusNotFound, "match records are not kept by this server")
		return
	}
	rec, err := s.opts.Archive.GetMatch(r.Context(), id)
	switch {
	case errors.Is(err, api.ErrNotFound):
		writeError(w, http.StatusNotFound, "match not found")
	case err != nil:
		s.log.Warn("archive match lookup failed", zap.String("match", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "match records unavailable")
	default:
		writeJSON(w, rec)
	}
}

func (s *Server) handleDebugRooms(w http.ResponseWriter, r *http.Request) {
	type roomInfo struct {
		ID    string `json:"id"`
		P1    string `json:"p1"`
		P2    string `json:"p2"`
		Phase string `json:"phase"`
		Round int    `json:"round"`
	}
	s.roomsMu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		rooms = append(rooms, rm)
	}
	s.roomsMu.Unlock()

	out := make([]roomInfo, 0, len(rooms))
	for _, rm := range rooms {
		phase, round := rm.Progress()
		out = append(out, roomInfo{ID: rm.ID, P1: rm.P1.Name, P2: rm.P2.Name, Phase: phase, Round: round})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}
