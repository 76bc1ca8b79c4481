package game

import (
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arrange overwrites the dealt order so tests can address tiles by position.
func arrange(t *testing.T, s *Session[string], order ...string) {
	t.Helper()
	require.Len(t, order, len(s.Deck))
	for i := range s.Deck {
		s.Deck[i].Symbol = order[i]
	}
}

func id(s *Session[string], pos int) TileID { return s.Deck[pos].ID }

func TestNewDeckComposition(t *testing.T) {
	for _, n := range []int{1, 2, 3, 6, 16} {
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			symbols := make([]string, n)
			for i := range symbols {
				symbols[i] = fmt.Sprintf("s%d", i)
			}
			s, err := New(symbols)
			require.NoError(t, err)

			require.Len(t, s.Deck, 2*n)
			counts := map[string]int{}
			ids := map[TileID]struct{}{}
			for _, tile := range s.Deck {
				counts[tile.Symbol]++
				ids[tile.ID] = struct{}{}
				assert.Equal(t, Hidden, tile.State)
			}
			assert.Len(t, counts, n)
			for sym, c := range counts {
				assert.Equal(t, 2, c, "symbol %s", sym)
			}
			assert.Len(t, ids, 2*n, "tile ids must be unique")
			assert.Zero(t, s.Moves)
			assert.False(t, s.Won)
			assert.Empty(t, s.Selection)
			assert.Len(t, s.ID, 16)
		})
	}
}

func TestNewRejectsBadSymbolSets(t *testing.T) {
	_, err := New([]string{})
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = New([]string{"a", "b", "a"})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestNewCopiesSymbols(t *testing.T) {
	in := []string{"a", "b"}
	s, err := New(in)
	require.NoError(t, err)
	in[0] = "z"
	assert.Equal(t, []string{"a", "b"}, s.Symbols())
}

func TestShuffleVariesBetweenGames(t *testing.T) {
	symbols := []string{"a", "b", "c", "d", "e", "f"}
	orders := map[string]int{}
	for i := 0; i < 50; i++ {
		s, err := New(symbols)
		require.NoError(t, err)
		orders[deckOrder(s)]++
	}
	assert.Greater(t, len(orders), 1, "50 deals produced a single order")
}

func TestSeededDealsAreReproducible(t *testing.T) {
	symbols := []string{"a", "b", "c", "d", "e", "f"}
	a, err := New(symbols, WithSeed(42))
	require.NoError(t, err)
	b, err := New(symbols, WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, deckOrder(a), deckOrder(b))

	a.Reset()
	b.Reset()
	assert.Equal(t, deckOrder(a), deckOrder(b))
}

func TestShuffleIsUniform(t *testing.T) {
	r := mrand.New(mrand.NewPCG(1, 2))
	const rounds = 60000
	seen := map[string]int{}
	for i := 0; i < rounds; i++ {
		xs := []string{"a", "b", "c"}
		shuffle(xs, r)
		seen[strings.Join(xs, "")]++
	}
	require.Len(t, seen, 6)
	for perm, n := range seen {
		assert.InDelta(t, rounds/6, n, 500, "permutation %s", perm)
	}
}

func TestSelectFirstTileDoesNotCountMove(t *testing.T) {
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "B")

	res, err := s.Select(id(s, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevealed, res.Outcome)
	assert.Equal(t, Revealed, s.Deck[0].State)
	assert.Equal(t, []TileID{id(s, 0)}, s.Selection)
	assert.Zero(t, s.Moves)
}

func TestSelectMatch(t *testing.T) {
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "B")

	_, err = s.Select(id(s, 0))
	require.NoError(t, err)
	res, err := s.Select(id(s, 2))
	require.NoError(t, err)

	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Zero(t, res.Pending)
	assert.Equal(t, 1, res.Moves)
	assert.Equal(t, Matched, s.Deck[0].State)
	assert.Equal(t, Matched, s.Deck[2].State)
	assert.Empty(t, s.Selection)
	assert.False(t, s.Won)
}

func TestSelectMismatchSettlesUntilResolved(t *testing.T) {
	s, err := New([]string{"A", "B"}, WithMismatchDelay(250*time.Millisecond))
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "B")

	_, err = s.Select(id(s, 0))
	require.NoError(t, err)
	res, err := s.Select(id(s, 1))
	require.NoError(t, err)

	assert.Equal(t, OutcomeMismatched, res.Outcome)
	assert.Equal(t, 250*time.Millisecond, res.Pending)
	assert.Equal(t, 1, s.Moves)
	assert.Equal(t, Revealed, s.Deck[0].State)
	assert.Equal(t, Revealed, s.Deck[1].State)
	assert.True(t, s.Settling())

	assert.True(t, s.ResolveMismatch())
	assert.Equal(t, Hidden, s.Deck[0].State)
	assert.Equal(t, Hidden, s.Deck[1].State)
	assert.Empty(t, s.Selection)
	assert.Equal(t, 1, s.Moves)

	assert.False(t, s.ResolveMismatch(), "nothing left to resolve")
}

func TestResolveMismatchIgnoresSingleReveal(t *testing.T) {
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)
	_, err = s.Select(id(s, 0))
	require.NoError(t, err)

	assert.False(t, s.ResolveMismatch())
	assert.Equal(t, Revealed, s.Deck[0].State)
}

func TestRejectedSelectionsLeaveSessionUnchanged(t *testing.T) {
	s, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "C", "B", "C")

	// matched pair
	_, _ = s.Select(id(s, 0))
	_, _ = s.Select(id(s, 2))
	// settling pair
	_, _ = s.Select(id(s, 1))
	_, _ = s.Select(id(s, 3))
	require.True(t, s.Settling())

	for _, pos := range []int{0, 1, 3, 4} {
		before := s.Snapshot()
		res, err := s.Select(id(s, pos))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, res.Outcome, "pos %d", pos)
		assert.Equal(t, before, s.Snapshot(), "pos %d", pos)
	}

	// a revealed single tile is ignored too
	require.True(t, s.ResolveMismatch())
	_, _ = s.Select(id(s, 1))
	before := s.Snapshot()
	res, err := s.Select(id(s, 1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, before, s.Snapshot())
}

func TestSelectInvalidTileReference(t *testing.T) {
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)
	_, _ = s.Select(id(s, 0))
	before := s.Snapshot()

	res, err := s.Select("does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTileReference))
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, before, s.Snapshot())
}

func TestScenarioThreePairs(t *testing.T) {
	s, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "C", "B", "C")

	res, err := s.Select(id(s, 0))
	require.NoError(t, err)
	assert.Equal(t, []TileID{id(s, 0)}, s.Selection)

	res, err = s.Select(id(s, 2))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, 1, s.Moves)
	assert.False(t, s.Won)

	_, err = s.Select(id(s, 1))
	require.NoError(t, err)
	assert.Equal(t, []TileID{id(s, 1)}, s.Selection)

	res, err = s.Select(id(s, 3))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMismatched, res.Outcome)
	assert.Equal(t, 2, s.Moves)
	assert.Equal(t, Revealed, s.Deck[1].State)
	assert.Equal(t, Revealed, s.Deck[3].State)
	require.True(t, s.ResolveMismatch())
	assert.Equal(t, Hidden, s.Deck[1].State)
	assert.Equal(t, Hidden, s.Deck[3].State)

	_, _ = s.Select(id(s, 1))
	res, err = s.Select(id(s, 4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, 3, s.Moves)
	assert.False(t, s.Won)

	_, _ = s.Select(id(s, 3))
	res, err = s.Select(id(s, 5))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, 4, s.Moves)
	assert.True(t, s.Won)
	assert.True(t, res.Won)
}

func TestWonStaysTrueUntilReset(t *testing.T) {
	s, err := New([]string{"A"})
	require.NoError(t, err)
	_, _ = s.Select(id(s, 0))
	_, _ = s.Select(id(s, 1))
	require.True(t, s.Won)

	for pos := range s.Deck {
		res, err := s.Select(id(s, pos))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.True(t, s.Won)
	}
	assert.False(t, s.ResolveMismatch())
	assert.True(t, s.Won)

	s.Reset()
	assert.False(t, s.Won)
}

func TestResetDealsFreshRound(t *testing.T) {
	s, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)
	sessionID := s.ID
	oldIDs := map[TileID]struct{}{}
	for _, tile := range s.Deck {
		oldIDs[tile.ID] = struct{}{}
	}
	arrange(t, s, "A", "B", "A", "C", "B", "C")
	_, _ = s.Select(id(s, 0))
	_, _ = s.Select(id(s, 2))
	_, _ = s.Select(id(s, 1))

	stale := id(s, 1)
	s.Reset()

	assert.Equal(t, sessionID, s.ID)
	assert.Zero(t, s.Moves)
	assert.False(t, s.Won)
	assert.Empty(t, s.Selection)
	require.Len(t, s.Deck, 6)
	for _, tile := range s.Deck {
		assert.Equal(t, Hidden, tile.State)
		_, reused := oldIDs[tile.ID]
		assert.False(t, reused, "tile id carried over from the previous round")
	}

	_, err = s.Select(stale)
	assert.ErrorIs(t, err, ErrInvalidTileReference)
}

func TestMatchedCountStaysEven(t *testing.T) {
	s, err := New([]string{"a", "b", "c", "d"}, WithSeed(7))
	require.NoError(t, err)

	// click every tile in order until the board clears
	for round := 0; round < 20 && !s.Won; round++ {
		for pos := range s.Deck {
			_, err := s.Select(id(s, pos))
			require.NoError(t, err)
			s.ResolveMismatch()

			matched, revealed := 0, 0
			for _, tile := range s.Deck {
				switch tile.State {
				case Matched:
					matched++
				case Revealed:
					revealed++
				}
			}
			assert.Zero(t, matched%2)
			assert.LessOrEqual(t, revealed, 2)
		}
	}
}

func TestSnapshotHidesFaceDownSymbols(t *testing.T) {
	s, err := New([]string{"A", "B"})
	require.NoError(t, err)
	arrange(t, s, "A", "B", "A", "B")
	_, _ = s.Select(id(s, 1))

	snap := s.Snapshot()
	require.Len(t, snap.Tiles, 4)
	for i, tile := range snap.Tiles {
		assert.Equal(t, id(s, i), tile.ID)
		if i == 1 {
			require.NotNil(t, tile.Symbol)
			assert.Equal(t, "B", *tile.Symbol)
			assert.Equal(t, Revealed, tile.State)
			continue
		}
		assert.Nil(t, tile.Symbol)
	}

	snap.Selection[0] = "mutated"
	assert.Equal(t, id(s, 1), s.Selection[0], "snapshot must be detached")
}

func deckOrder(s *Session[string]) string {
	var b strings.Builder
	for _, tile := range s.Deck {
		b.WriteString(tile.Symbol)
	}
	return b.String()
}
