// apps/go-server/internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Holds the live Memory Match games of the process.
//
// Characteristics:
//   - Entries keyed by game ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete closes the game, so a pending mismatch timer cannot touch it.
//   - Claim hands guest games to an account after signup/login.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/tilematch/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("not found")

// Entry is a live game plus what the server needs to persist its result.
// OwnerID and Anonymous are set before Save; read them through Owner afterwards.
type Entry struct {
	Game      *game.Game[string]
	OwnerID   string // user ID, or the anonymous cookie value
	Anonymous bool
	SymbolSet string // set name, or "custom"
	Daily     string // YYYY-MM-DD for daily boards, empty otherwise
	StartedAt time.Time

	mu sync.RWMutex // guards OwnerID, Anonymous after Save
}

// ID is the game ID.
func (e *Entry) ID() string { return e.Game.ID() }

// Owner returns the current owner of the game.
func (e *Entry) Owner() (id string, anonymous bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.OwnerID, e.Anonymous
}

// OwnedBy reports whether the caller identified by id/anonymous owns the game.
func (e *Entry) OwnedBy(id string, anonymous bool) bool {
	owner, anon := e.Owner()
	return id != "" && id == owner && anonymous == anon
}

// claim moves a guest game to userID. Returns false if anonID does not own it.
func (e *Entry) claim(anonID, userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Anonymous || e.OwnerID != anonID {
		return false
	}
	e.OwnerID, e.Anonymous = userID, false
	return true
}

// Store defines the persistence interface for live games.
type Store interface {
	// Save persists or updates an entry.
	Save(ctx context.Context, e *Entry) error

	// Get retrieves an entry by game ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Delete discards an entry and closes its game. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Claim hands every live game of guest anonID to userID and
	// returns how many moved.
	Claim(ctx context.Context, anonID, userID string) int

	// Len reports how many games are live.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards entries
	entries map[string]*Entry // keyed by game ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{entries: make(map[string]*Entry)}
}

// Save adds or updates the entry in the map. Replacing an entry with a
// different game closes the old one.
func (m *memory) Save(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[e.ID()]; ok && old.Game != e.Game {
		old.Game.Close()
	}
	m.entries[e.ID()] = e
	return nil
}

// Get looks up an entry by game ID.
func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if ok {
		e.Game.Close()
	}
	return nil
}

func (m *memory) Claim(ctx context.Context, anonID, userID string) int {
	if anonID == "" || userID == "" {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.claim(anonID, userID) {
			n++
		}
	}
	return n
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
