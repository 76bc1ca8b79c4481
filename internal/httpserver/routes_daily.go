// apps/go-server/internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Board" mode.
// Exposes two endpoints under /daily:
//   - POST /daily/new         → start (or resume) today's board
//   - GET  /daily/leaderboard → top 20 results for today (or a given date)
//
// The board itself is played through the regular /game/* endpoints.
// Everyone gets the same deal on a given date: the shuffle is seeded with
// HMAC(salt, date) and the symbol set rotates with the same seed.
// Each player can finish the board once per day (enforced by the DB).

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tilematch/apps/go-server/internal/daily"
	"github.com/robalobadob/tilematch/apps/go-server/internal/game"
	"github.com/robalobadob/tilematch/apps/go-server/internal/store"
	"github.com/robalobadob/tilematch/apps/go-server/internal/symbols"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]string // owner|date → live game ID
	mu       sync.Mutex        // guards sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    s.results,
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]string),
	}
	s.daily = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// board returns today's date key, deck seed and symbol set.
func (d *dailyServer) board(now time.Time) (date string, seed uint64, set string) {
	date = daily.DateKey(now)
	seed = daily.Seed(now, d.salt)
	names := symbols.Names()
	if len(names) == 0 {
		return date, seed, ""
	}
	return date, seed, names[seed%uint64(len(names))]
}

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	Date   string   `json:"date"`
	Played bool     `json:"played"`
	Game   *gameRes `json:"game,omitempty"`
}

// handleNew creates or reuses today's board.
// - If the player already has a result for today → Played=true.
// - Otherwise resume the live board or deal a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	owner, anon := d.srv.owner(w, r)
	date, seed, setName := d.board(time.Now())

	if played, err := d.store.AlreadyPlayed(r.Context(), owner, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	key := owner + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prune(date)
	if id, ok := d.sessions[key]; ok {
		if e, err := d.srv.store.Get(r.Context(), id); err == nil && e.OwnedBy(owner, anon) {
			res := newGameRes(e, e.Game.Snapshot())
			_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Game: &res})
			return
		}
		delete(d.sessions, key)
	}

	syms, ok := symbols.Lookup(setName)
	if !ok {
		http.Error(w, `{"error":"no_symbol_sets"}`, http.StatusInternalServerError)
		return
	}
	e, err := d.srv.startGame(r.Context(), owner, anon, setName, syms, date, game.WithSeed(seed))
	if err != nil {
		log.Error().Err(err).Msg("start daily game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	d.sessions[key] = e.ID()
	res := newGameRes(e, e.Game.Snapshot())
	_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Game: &res})
}

// prune drops boards of earlier days. Caller holds mu.
func (d *dailyServer) prune(today string) {
	for key := range d.sessions {
		if !strings.HasSuffix(key, "|"+today) {
			delete(d.sessions, key)
		}
	}
}

// claim moves the live boards of a guest to userID so they can be resumed after login.
func (d *dailyServer) claim(anonID, userID string) {
	if anonID == "" || userID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, id := range d.sessions {
		if date, ok := strings.CutPrefix(key, anonID+"|"); ok {
			delete(d.sessions, key)
			if _, taken := d.sessions[userID+"|"+date]; !taken {
				d.sessions[userID+"|"+date] = id
			}
		}
	}
}

// recordDaily stores the result of a won daily board.
func (s *Server) recordDaily(ctx context.Context, e *store.Entry, moves int, finishedAt time.Time) {
	owner, _ := e.Owner()
	err := s.results.InsertResult(ctx, daily.Result{
		UserID:    owner,
		Date:      e.Daily,
		Moves:     moves,
		ElapsedMs: int(finishedAt.Sub(e.StartedAt).Milliseconds()),
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", e.ID()).Msg("insert daily result")
	}
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
