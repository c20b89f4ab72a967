package server

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/game"
	"github.com/pefman/quantum-battleships/internal/models"
)

const (
	writeWait   = 5 * time.Second
	maxNameLen  = 32
	maxInbound  = 4096
	botNameBase = "Bot"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Player is one connected client, or a server-side bot without a connection.
type Player struct {
	ID       string
	Name     string
	IsBot    bool
	WantsBot bool

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	// queued is set while the player waits for a human opponent.
	queued atomic.Bool
}

func (p *Player) Closed() bool { return p.closed.Load() }

// sendTo writes one message; gorilla connections allow a single writer.
func (s *Server) sendTo(p *Player, m models.WsMsg) {
	if p == nil || p.conn == nil || p.Closed() {
		return
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(m); err != nil {
		s.log.Debug("ws write failed", zap.String("player", p.ID), zap.Error(err))
	}
}

func (s *Server) sendError(p *Player, err error) {
	s.sendTo(p, models.WsMsg{Type: "error", Data: models.ErrorMsg{
		Message:     err.Error(),
		Recoverable: game.IsRecoverable(err) || errors.Is(err, errBadMessage),
	}})
}

var errBadMessage = errors.New("bad message")

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = randomCallsign()
	}
	name = truncateName(name)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxInbound)
	p := &Player{ID: "p_" + uuid.NewString(), Name: name, conn: conn}
	s.log.Info("ws connect", zap.String("player", p.ID), zap.String("name", name), zap.String("from", r.RemoteAddr))
	s.sendTo(p, models.WsMsg{Type: "you", Data: models.You{PlayerID: p.ID, Name: p.Name}})
	s.lobbySet(p, false)
	go s.wsReader(p)
}

type clientIn struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) wsReader(p *Player) {
	defer func() {
		p.closed.Store(true)
		_ = p.conn.Close()
		s.log.Info("ws closed", zap.String("player", p.ID), zap.String("name", p.Name))
		s.lobbyDelete(p.ID)
		if r := s.roomOf(p); r != nil {
			r.Leave(p)
		}
	}()
	for {
		var in clientIn
		if err := p.conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws read failed", zap.String("player", p.ID), zap.Error(err))
			}
			return
		}
		s.log.Debug("ws recv", zap.String("player", p.ID), zap.String("type", in.Type))
		r := s.roomOf(p)

		switch in.Type {
		case "queue":
			if r != nil {
				s.sendError(p, errors.Join(errBadMessage, errAlreadySeated))
				continue
			}
			var body models.QueueRequest
			if len(in.Data) > 0 {
				if err := json.Unmarshal(in.Data, &body); err != nil {
					s.sendError(p, errors.Join(errBadMessage, err))
					continue
				}
			}
			p.WantsBot = body.Bot
			s.enqueue(p)
		case "place":
			var body models.PlaceRequest
			if err := json.Unmarshal(in.Data, &body); err != nil {
				s.sendError(p, errors.Join(errBadMessage, err))
				continue
			}
			if r == nil {
				s.sendError(p, errors.Join(errBadMessage, errNoRoom))
				continue
			}
			r.Place(p, body.Order, body.Position)
		case "target":
			var body models.TargetRequest
			if err := json.Unmarshal(in.Data, &body); err != nil {
				s.sendError(p, errors.Join(errBadMessage, err))
				continue
			}
			if r == nil {
				s.sendError(p, errors.Join(errBadMessage, errNoRoom))
				continue
			}
			r.Target(p, body.Position)
		case "resolve":
			if r == nil {
				s.sendError(p, errors.Join(errBadMessage, errNoRoom))
				continue
			}
			r.Retry(p)
		case "status":
			if r == nil {
				s.sendTo(p, models.WsMsg{Type: "status", Data: models.Status{Phase: "lobby"}})
				continue
			}
			r.SendStatus(p, "")
		default:
			s.sendError(p, errors.Join(errBadMessage, errors.New("unknown message type "+in.Type)))
		}
	}
}

var (
	errNoRoom        = errors.New("not in a match")
	errAlreadySeated = errors.New("already in a match")
)

// randomCallsign names players who connect without one.
func randomCallsign() string {
	adjs := []string{"Entangled", "Coherent", "Spooky", "Uncertain", "Superposed", "Decoherent", "Tunnelling", "Collapsed"}
	nouns := []string{"Frigate", "Corvette", "Destroyer", "Sloop", "Cutter", "Dreadnought", "Galleon", "Tender"}
	return adjs[rand.Intn(len(adjs))] + " " + nouns[rand.Intn(len(nouns))]
}

// truncateName caps a display name at maxNameLen runes.
func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	return string([]rune(name)[:maxNameLen])
}
