// apps/go-server/internal/game/options.go
//
// Construction options shared by New and NewGame.
// Covers:
//   - the shuffle source (crypto/rand by default, or a seeded PCG for daily boards),
//   - the mismatch display delay,
//   - the clock Game schedules its flip-back timer on.

package game

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"time"
)

// Shuffler is the randomness source of the deck shuffle.
// *math/rand/v2.Rand satisfies it.
type Shuffler interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// Option configures New and NewGame.
type Option func(*options)

type options struct {
	shuffler Shuffler
	delay    time.Duration
	clock    Clock
	newID    func() TileID
}

func buildOptions(opts []Option) options {
	o := options{
		shuffler: cryptoShuffler{},
		delay:    DefaultMismatchDelay,
		clock:    realClock{},
		newID:    newTileID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithShuffler replaces the default crypto/rand source.
// r is used without locking; do not share it between concurrently used games.
func WithShuffler(r Shuffler) Option {
	return func(o *options) {
		if r != nil {
			o.shuffler = r
		}
	}
}

// WithSeed makes the shuffle reproducible: the same seed deals the same
// sequence of decks. Each session built with the option gets its own source.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.shuffler = mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMismatchDelay sets how long a mismatched pair stays face up.
// Negative values are treated as zero.
func WithMismatchDelay(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.delay = d
	}
}

// WithClock sets the timer facility used by Game. Ignored by a bare Session.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// cryptoShuffler draws from crypto/rand.
type cryptoShuffler struct{}

func (cryptoShuffler) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mrand.IntN(n)
	}
	return int(v.Int64())
}
