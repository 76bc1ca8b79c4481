// apps/go-server/internal/game/engine.go
//
// Core engine for a single tile matching session.
// Responsibilities:
//   - Build a deck holding every symbol exactly twice, shuffled once (Fisher–Yates).
//   - Apply tile selections: reveal, compare the pair, match or settle.
//   - Track moves (one per completed comparison) and the win flag.
//   - Resolve a settling pair on request and rebuild the deck on reset.
//
// Notes:
//   - The engine owns no timer. A mismatch reports Pending and the caller runs
//     ResolveMismatch once it elapsed; Game (timed.go) does that on its own.
//   - Selecting while two tiles are face up is a no-op. That single check is
//     what keeps at most one comparison in flight.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMismatchDelay is how long a mismatched pair stays face up.
const DefaultMismatchDelay = time.Second

var (
	// ErrInvalidTileReference is returned by Select for an id outside the deck.
	ErrInvalidTileReference = errors.New("invalid tile reference")
	ErrNoSymbols            = errors.New("symbol set is empty")
	ErrDuplicateSymbol      = errors.New("duplicate symbol in set")
)

// Session holds the mutable state of one round.
// It is not safe for concurrent use; wrap it in a Game when a timer is involved.
type Session[S comparable] struct {
	ID        string
	Deck      []Tile[S]
	Selection []TileID
	Moves     int
	Won       bool

	symbols []S
	index   map[TileID]int
	opts    options
}

// New constructs a session with a freshly shuffled deck of 2*len(symbols) tiles.
func New[S comparable](symbols []S, opts ...Option) (*Session[S], error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	seen := make(map[S]struct{}, len(symbols))
	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateSymbol, sym)
		}
		seen[sym] = struct{}{}
	}

	s := &Session[S]{
		ID:      randomID(),
		symbols: append([]S(nil), symbols...),
		opts:    buildOptions(opts),
	}
	s.deal()
	return s, nil
}

// deal rebuilds the deck from the symbol set and zeroes every counter.
func (s *Session[S]) deal() {
	deck := make([]Tile[S], 0, 2*len(s.symbols))
	for _, sym := range s.symbols {
		deck = append(deck, Tile[S]{Symbol: sym}, Tile[S]{Symbol: sym})
	}
	shuffle(deck, s.opts.shuffler)

	s.index = make(map[TileID]int, len(deck))
	for i := range deck {
		deck[i].ID = s.opts.newID()
		deck[i].State = Hidden
		s.index[deck[i].ID] = i
	}
	s.Deck = deck
	s.Selection = nil
	s.Moves = 0
	s.Won = false
}

// shuffle is an in-place Fisher–Yates permutation.
func shuffle[T any](xs []T, r Shuffler) {
	for i := len(xs) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Select applies a click on tile id.
//
// Validation rules:
//   - id must belong to the deck, else ErrInvalidTileReference.
//   - While a pair is settling, or when the tile is already face up,
//     the call is ignored and nothing changes.
//
// State transitions:
//   - First tile of a pair → Revealed.
//   - Second tile → Moves+1; equal symbols → both Matched (and Won when the
//     deck is cleared), otherwise both stay Revealed until ResolveMismatch.
func (s *Session[S]) Select(id TileID) (SelectResult, error) {
	i, ok := s.index[id]
	if !ok {
		return s.result(OutcomeIgnored), fmt.Errorf("%w: %q", ErrInvalidTileReference, id)
	}
	if len(s.Selection) == 2 || s.Deck[i].State != Hidden {
		return s.result(OutcomeIgnored), nil
	}

	s.Deck[i].State = Revealed
	s.Selection = append(s.Selection, id)
	if len(s.Selection) == 1 {
		return s.result(OutcomeRevealed), nil
	}

	s.Moves++
	a, b := s.index[s.Selection[0]], s.index[s.Selection[1]]
	if s.Deck[a].Symbol != s.Deck[b].Symbol {
		res := s.result(OutcomeMismatched)
		res.Pending = s.opts.delay
		return res, nil
	}

	s.Deck[a].State, s.Deck[b].State = Matched, Matched
	s.Selection = nil
	if allMatched(s.Deck) {
		s.Won = true
	}
	return s.result(OutcomeMatched), nil
}

// ResolveMismatch flips a settling pair back face down.
// Returns false when there was nothing to resolve.
func (s *Session[S]) ResolveMismatch() bool {
	if !s.Settling() {
		return false
	}
	for _, id := range s.Selection {
		s.Deck[s.index[id]].State = Hidden
	}
	s.Selection = nil
	return true
}

// Settling reports whether a mismatched pair is waiting to be resolved.
func (s *Session[S]) Settling() bool {
	return len(s.Selection) == 2
}

// Reset starts a new round over the same symbols: new ids, new order,
// counters at zero. The session ID is kept.
func (s *Session[S]) Reset() {
	s.deal()
}

// Delay is the configured mismatch display time.
func (s *Session[S]) Delay() time.Duration { return s.opts.delay }

// Symbols returns a copy of the symbol set the deck is built from.
func (s *Session[S]) Symbols() []S { return append([]S(nil), s.symbols...) }

// Snapshot returns a detached view; symbols of hidden tiles are withheld.
func (s *Session[S]) Snapshot() Snapshot[S] {
	tiles := make([]TileView[S], len(s.Deck))
	for i, t := range s.Deck {
		tiles[i] = TileView[S]{ID: t.ID, State: t.State}
		if t.State != Hidden {
			sym := t.Symbol
			tiles[i].Symbol = &sym
		}
	}
	return Snapshot[S]{
		ID:        s.ID,
		Tiles:     tiles,
		Selection: append([]TileID{}, s.Selection...),
		Moves:     s.Moves,
		Won:       s.Won,
		Settling:  s.Settling(),
	}
}

func (s *Session[S]) result(o Outcome) SelectResult {
	return SelectResult{Outcome: o, Moves: s.Moves, Won: s.Won}
}

// allMatched returns true if every tile is Matched.
func allMatched[S comparable](deck []Tile[S]) bool {
	for _, t := range deck {
		if t.State != Matched {
			return false
		}
	}
	return true
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func newTileID() TileID { return TileID(uuid.NewString()) }
