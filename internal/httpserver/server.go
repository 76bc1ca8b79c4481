// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the Memory Match backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/symbols".
//   - Game endpoints (optional auth): new, get, select, resolve, reset, delete.
//   - Websocket stream of state changes: GET /game/{id}/ws (ws.go).
//   - Daily board endpoints under /daily (routes_daily.go).
//   - Auth + profile/stat endpoints (auth.go).
//   - Database persistence of games and player stats.
//
// Notes:
//   - Live games sit in the store; the DB only keeps owner rows and results.
//   - Per-game endpoints only serve the owner (user or anon cookie); anyone
//     else gets the same 404 as for an unknown ID.
//   - A mismatched pair flips back on its own after the configured delay.
//     Clients that do not want to wait may call POST /game/resolve.
//   - DB writes on the play path are best effort: failures are logged, the
//     request still succeeds.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tilematch/apps/go-server/internal/config"
	"github.com/robalobadob/tilematch/apps/go-server/internal/daily"
	"github.com/robalobadob/tilematch/apps/go-server/internal/game"
	"github.com/robalobadob/tilematch/apps/go-server/internal/store"
	"github.com/robalobadob/tilematch/apps/go-server/internal/symbols"
)

const customSet = "custom"

// Server bundles router, live game store, and DB handle.
type Server struct {
	r        *chi.Mux
	store    store.Store
	db       *sql.DB
	cfg      config.Config
	results  *daily.Store
	daily    *dailyServer
	gameOpts []game.Option
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
// opts are applied to every game the server deals (after the configured delay).
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...game.Option) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		store:    st,
		db:       db,
		cfg:      cfg,
		results:  daily.NewStore(db),
		gameOpts: append([]game.Option{game.WithMismatchDelay(cfg.MismatchDelay)}, opts...),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Websocket stays outside the timeout group: the connection outlives it.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleStream)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"tilematch-go","endpoints":["/health","/symbols","POST /game/new","POST /game/select","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/symbols", s.handleSymbols)

		// Game endpoints: optional auth, guests can play
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			r.Post("/game/new", s.handleNewGame)
			r.Get("/game/{id}", s.handleGetGame)
			r.Delete("/game/{id}", s.handleDeleteGame)
			r.Post("/game/select", s.handleSelect)
			r.Post("/game/resolve", s.handleResolve)
			r.Post("/game/reset", s.handleReset)
			s.mountDaily(r)
		})

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ SYMBOLS ------------------------------------

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	sets := map[string][]string{}
	for _, name := range symbols.Names() {
		sets[name], _ = symbols.Lookup(name)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"default": symbols.Default(),
		"names":   symbols.Names(),
		"sets":    sets,
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq is the payload of POST /game/new.
type newGameReq struct {
	SymbolSet string   `json:"symbolSet"` // named set; default set when empty
	Symbols   []string `json:"symbols"`   // custom symbols, overrides SymbolSet
}

// gameRes describes a live game; returned by most game endpoints.
type gameRes struct {
	GameID    string                `json:"gameId"`
	SymbolSet string                `json:"symbolSet"`
	Daily     string                `json:"daily,omitempty"`
	DelayMs   int64                 `json:"mismatchDelayMs"`
	State     game.Snapshot[string] `json:"state"`
}

func newGameRes(e *store.Entry, snap game.Snapshot[string]) gameRes {
	return gameRes{
		GameID:    e.ID(),
		SymbolSet: e.SymbolSet,
		Daily:     e.Daily,
		DelayMs:   e.Game.Delay().Milliseconds(),
		State:     snap,
	}
}

// handleNewGame deals a new board and persists a DB "owner" row
// (either user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	setName, syms, err := resolveSymbols(req)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	owner, anon := s.owner(w, r)
	e, err := s.startGame(r.Context(), owner, anon, setName, syms, "")
	if err != nil {
		log.Error().Err(err).Msg("start game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(newGameRes(e, e.Game.Snapshot()))
}

var errUnknownSet = errors.New("unknown_symbol_set")

// resolveSymbols picks custom symbols, a named set, or the default set.
func resolveSymbols(req newGameReq) (string, []string, error) {
	if len(req.Symbols) > 0 {
		list, err := symbols.Custom(req.Symbols)
		if err != nil {
			return "", nil, errors.New("invalid_symbols")
		}
		return customSet, list, nil
	}
	name := req.SymbolSet
	if name == "" {
		name = symbols.Default()
	}
	list, ok := symbols.Lookup(name)
	if !ok {
		return "", nil, errUnknownSet
	}
	return name, list, nil
}

// startGame creates the game, stores it, and records the owner row.
// daily is the date key of a daily board, empty otherwise.
func (s *Server) startGame(ctx context.Context, owner string, anon bool, setName string, syms []string, daily string, extra ...game.Option) (*store.Entry, error) {
	opts := append(append([]game.Option{}, s.gameOpts...), extra...)
	g, err := game.NewGame(syms, opts...)
	if err != nil {
		return nil, err
	}
	e := &store.Entry{
		Game:      g,
		OwnerID:   owner,
		Anonymous: anon,
		SymbolSet: setName,
		Daily:     daily,
		StartedAt: time.Now(),
	}
	if err := s.store.Save(ctx, e); err != nil {
		g.Close()
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	col := "user_id"
	if anon {
		col = "anonymous_id"
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO games (id, `+col+`, symbol_set, daily_date, started_at, status, moves)
	                     VALUES (?,?,?,NULLIF(?,''),?,'playing',0)`, e.ID(), owner, setName, daily, now); err != nil {
		log.Warn().Err(err).Str("gameId", e.ID()).Msg("insert game row")
	}
	if !anon {
		s.bumpStarted(ctx, owner)
	}
	log.Info().Str("gameId", e.ID()).Str("symbolSet", setName).Bool("anonymous", anon).Msg("game started")
	return e, nil
}

// owner returns the authenticated user ID, or the anonymous cookie value.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (id string, anonymous bool) {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID, false
	}
	return s.ensureAnonID(w, r), true
}

// caller identifies the requester without issuing a new anonymous cookie.
func (s *Server) caller(r *http.Request) (id string, anonymous bool) {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID, false
	}
	if c, err := r.Cookie(anonCookieName); err == nil {
		return c.Value, true
	}
	return "", true
}

// lookup fetches a live game owned by the caller or writes a 404.
// Games of other players are reported as missing.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*store.Entry, bool) {
	e, err := s.store.Get(r.Context(), id)
	if err == nil && e.OwnedBy(s.caller(r)) {
		return e, true
	}
	http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	return nil, false
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(newGameRes(e, e.Game.Snapshot()))
}

// handleDeleteGame discards a live game; an unfinished round is recorded as abandoned.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.lookup(w, r, id); !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		http.Error(w, `{"error":"delete_failed"}`, http.StatusInternalServerError)
		return
	}
	if _, err := s.db.ExecContext(r.Context(), `UPDATE games SET status='abandoned', finished_at=? WHERE id=? AND status='playing'`,
		time.Now().UTC().Format(time.RFC3339), id); err != nil {
		log.Warn().Err(err).Str("gameId", id).Msg("abandon game")
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// selectReq/Res payloads for POST /game/select.
type selectReq struct {
	GameID string `json:"gameId"`
	TileID string `json:"tileId"`
}
type selectRes struct {
	Outcome   game.Outcome          `json:"outcome"`
	PendingMs int64                 `json:"pendingMs"`
	State     game.Snapshot[string] `json:"state"`
}

// handleSelect forwards a tile click. Unknown tiles are a client bug (400);
// every other rejected click is a no-op reported as outcome "ignored".
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	snap, res, err := e.Game.Select(game.TileID(req.TileID))
	switch {
	case errors.Is(err, game.ErrInvalidTileReference):
		http.Error(w, `{"error":"invalid_tile"}`, http.StatusBadRequest)
		return
	case errors.Is(err, game.ErrClosed):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("gameId", req.GameID).Msg("select")
		http.Error(w, `{"error":"select_failed"}`, http.StatusInternalServerError)
		return
	}

	if res.Outcome == game.OutcomeMatched || res.Outcome == game.OutcomeMismatched {
		if _, err := s.db.ExecContext(r.Context(), `UPDATE games SET moves=? WHERE id=?`, res.Moves, e.ID()); err != nil {
			log.Warn().Err(err).Msg("update moves")
		}
	}
	// Clicks on a cleared board come back ignored with Won still set.
	if res.Outcome == game.OutcomeMatched && res.Won {
		s.finish(r.Context(), e, res.Moves)
	}

	_ = json.NewEncoder(w).Encode(selectRes{
		Outcome:   res.Outcome,
		PendingMs: res.Pending.Milliseconds(),
		State:     snap,
	})
}

// finish records a won round: game row, player stats and, for daily boards,
// the leaderboard entry. Best effort.
func (s *Server) finish(ctx context.Context, e *store.Entry, moves int) {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE games SET status='won', finished_at=?, moves=? WHERE id=?`,
		now.Format(time.RFC3339), moves, e.ID()); err != nil {
		log.Warn().Err(err).Msg("finish game")
	}
	if owner, anon := e.Owner(); !anon {
		if err := bumpWin(tx, owner, moves); err != nil {
			log.Warn().Err(err).Str("user", owner).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish")
	}

	if e.Daily != "" {
		s.recordDaily(ctx, e, moves, now)
	}
	log.Info().Str("gameId", e.ID()).Int("moves", moves).Msg("game won")
}

type gameIDReq struct {
	GameID string `json:"gameId"`
}

// handleResolve flips a mismatched pair back immediately.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req gameIDReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	snap, resolved, err := e.Game.Resolve()
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"resolved": resolved, "state": snap})
}

// handleReset deals a new round of the same game. Daily boards cannot be reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req gameIDReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	if e.Daily != "" {
		http.Error(w, `{"error":"daily_no_reset"}`, http.StatusConflict)
		return
	}
	snap, err := e.Game.Reset()
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if _, err := s.db.ExecContext(r.Context(), `UPDATE games SET status='playing', moves=0, finished_at=NULL, started_at=? WHERE id=?`,
		time.Now().UTC().Format(time.RFC3339), e.ID()); err != nil {
		log.Warn().Err(err).Str("gameId", e.ID()).Msg("reset game row")
	}
	if owner, anon := e.Owner(); !anon {
		s.bumpStarted(r.Context(), owner)
	}
	_ = json.NewEncoder(w).Encode(newGameRes(e, snap))
}
