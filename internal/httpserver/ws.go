// apps/go-server/internal/httpserver/ws.go
//
// Websocket push of game state.
// GET /game/{id}/ws upgrades the connection, sends the current snapshot, then
// one message per state change (reveal, match, mismatch, timed flip-back,
// reset). Clicks still go through POST /game/select. Only the owner may subscribe.
//
// Outgoing message: {"event":"state","gameId":"…","state":{…snapshot…}}

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tilematch/apps/go-server/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

type streamMsg struct {
	Event  string                `json:"event"`
	GameID string                `json:"gameId"`
	State  game.Snapshot[string] `json:"state"`
}

// checkOrigin admits same-origin requests and the configured client origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.ClientOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	e, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", e.ID()).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// Latest state wins: a slow reader skips intermediate snapshots.
	updates := make(chan game.Snapshot[string], 1)
	cancel := e.Game.Subscribe(func(snap game.Snapshot[string]) {
		select {
		case updates <- snap:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- snap
		}
	})
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap game.Snapshot[string]) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(streamMsg{Event: "state", GameID: e.ID(), State: snap}) == nil
	}
	if !send(e.Game.Snapshot()) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case snap := <-updates:
			if !send(snap) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
