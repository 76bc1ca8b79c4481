// apps/go-server/internal/game/types.go
//
// Core type definitions for the tile matching engine.
// Defines:
//   - TileState: visibility of a single tile (hidden/revealed/matched).
//   - Tile: one matchable unit of the deck.
//   - Outcome / SelectResult: what a selection did.
//   - Snapshot / TileView: read-only view handed to the presentation layer.

package game

import (
	"fmt"
	"time"
)

// TileState represents the visibility of a tile.
// Possible values:
//   - "hidden":   face down.
//   - "revealed": face up, waiting for (or part of) a pair comparison.
//   - "matched":  paired with its twin; stays face up for the rest of the round.
type TileState uint8

const (
	Hidden TileState = iota
	Revealed
	Matched
)

func (s TileState) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("TileState(%d)", uint8(s))
}

// MarshalText encodes the state as its lowercase name.
func (s TileState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *TileState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hidden":
		*s = Hidden
	case "revealed":
		*s = Revealed
	case "matched":
		*s = Matched
	default:
		return fmt.Errorf("unknown tile state %q", b)
	}
	return nil
}

// TileID identifies a tile for the life of a round, independent of its position.
type TileID string

// Tile is one card of the deck.
type Tile[S comparable] struct {
	ID     TileID
	Symbol S
	State  TileState
}

// Outcome describes the effect of a single Select call.
type Outcome uint8

const (
	// OutcomeIgnored: the selection was a defined no-op.
	OutcomeIgnored Outcome = iota
	// OutcomeRevealed: first tile of a pair turned face up.
	OutcomeRevealed
	// OutcomeMatched: second tile completed a pair.
	OutcomeMatched
	// OutcomeMismatched: second tile differs; the pair is settling.
	OutcomeMismatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRevealed:
		return "revealed"
	case OutcomeMatched:
		return "matched"
	case OutcomeMismatched:
		return "mismatched"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	for _, v := range []Outcome{OutcomeIgnored, OutcomeRevealed, OutcomeMatched, OutcomeMismatched} {
		if v.String() == string(b) {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// SelectResult is returned by Select.
// Pending is non-zero only for OutcomeMismatched and tells the caller how long
// the pair stays face up before ResolveMismatch should run.
type SelectResult struct {
	Outcome Outcome
	Pending time.Duration
	Moves   int
	Won     bool
}

// TileView is the visible face of a tile. Symbol is nil while the tile is hidden.
type TileView[S comparable] struct {
	ID     TileID    `json:"id"`
	State  TileState `json:"state"`
	Symbol *S        `json:"symbol,omitempty"`
}

// Snapshot is a detached, read-only copy of a session.
type Snapshot[S comparable] struct {
	ID        string        `json:"id"`
	Tiles     []TileView[S] `json:"tiles"`
	Selection []TileID      `json:"selection"`
	Moves     int           `json:"moves"`
	Won       bool          `json:"won"`
	Settling  bool          `json:"settling"`
}
