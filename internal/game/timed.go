// apps/go-server/internal/game/timed.go
//
// Game is the self-scheduling host of a Session.
// It owns the mismatch timer so a presentation layer only forwards clicks and
// renders whatever snapshot it is handed.
//
// Notes:
//   - Every scheduled resolution remembers the generation it was created in;
//     Reset, Resolve and Close bump the generation so a stale timer is a no-op.
//   - Listeners run with the game lock held, in the order the changes happened.
//     They must not call back into the Game.
package game

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by operations on a discarded game.
var ErrClosed = errors.New("game closed")

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The default is backed by time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Game is safe for concurrent use.
type Game[S comparable] struct {
	mu      sync.Mutex
	s       *Session[S]
	clock   Clock
	gen     uint64
	pending Timer
	closed  bool
	subs    map[uint64]func(Snapshot[S])
	nextSub uint64
}

// NewGame builds a session and wraps it.
func NewGame[S comparable](symbols []S, opts ...Option) (*Game[S], error) {
	s, err := New(symbols, opts...)
	if err != nil {
		return nil, err
	}
	return &Game[S]{
		s:     s,
		clock: s.opts.clock,
		subs:  make(map[uint64]func(Snapshot[S])),
	}, nil
}

// ID is the session identifier; it survives Reset.
func (g *Game[S]) ID() string { return g.s.ID }

// Delay is the mismatch display time of the session.
func (g *Game[S]) Delay() time.Duration { return g.s.Delay() }

// Select forwards to Session.Select and, on a mismatch, schedules the pair to
// flip back after the configured delay.
func (g *Game[S]) Select(id TileID) (Snapshot[S], SelectResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return Snapshot[S]{}, SelectResult{}, ErrClosed
	}
	res, err := g.s.Select(id)
	snap := g.s.Snapshot()
	if err != nil || res.Outcome == OutcomeIgnored {
		return snap, res, err
	}
	if res.Outcome == OutcomeMismatched {
		gen := g.gen
		g.pending = g.clock.AfterFunc(res.Pending, func() { g.settle(gen) })
	}
	g.notify(snap)
	return snap, res, nil
}

// settle is the timer callback.
func (g *Game[S]) settle(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || gen != g.gen {
		return
	}
	g.pending = nil
	if g.s.ResolveMismatch() {
		g.notify(g.s.Snapshot())
	}
}

// Resolve settles a mismatched pair right away, cancelling the timer.
// Returns false when nothing was settling.
func (g *Game[S]) Resolve() (Snapshot[S], bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return Snapshot[S]{}, false, ErrClosed
	}
	if !g.s.Settling() {
		return g.s.Snapshot(), false, nil
	}
	g.cancelPending()
	g.s.ResolveMismatch()
	snap := g.s.Snapshot()
	g.notify(snap)
	return snap, true, nil
}

// Reset deals a new round. Any pending resolution of the old round is dropped.
func (g *Game[S]) Reset() (Snapshot[S], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return Snapshot[S]{}, ErrClosed
	}
	g.cancelPending()
	g.s.Reset()
	snap := g.s.Snapshot()
	g.notify(snap)
	return snap, nil
}

// Close discards the game: the timer is stopped and listeners are dropped.
func (g *Game[S]) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.cancelPending()
	g.closed = true
	g.subs = nil
}

// Snapshot returns the current view.
func (g *Game[S]) Snapshot() Snapshot[S] {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.s.Snapshot()
}

// Subscribe registers fn for every state change. The returned func removes it.
func (g *Game[S]) Subscribe(fn func(Snapshot[S])) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return func() {}
	}
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}

// cancelPending stops the timer and invalidates any callback already in flight.
// Caller holds mu.
func (g *Game[S]) cancelPending() {
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.gen++
}

// notify calls every listener. Caller holds mu.
func (g *Game[S]) notify(snap Snapshot[S]) {
	for _, fn := range g.subs {
		fn(snap)
	}
}
