// apps/go-server/internal/symbols/symbols.go
//
// Provides the named symbol sets Memory Match decks are built from.
//
// Responsibilities:
//   - Load sets from a configured file or fall back to the embedded defaults.
//   - Validate every set (at least one symbol, no symbol twice).
//   - Supply lookups: Lookup, Names, Default, Stats, Custom.
//
// File format, one set per line (blank lines and # comments are skipped):
//
//	party: 🎨 🎭 🎪 🎯 🎲 🎸
//
// Initialization behavior (Init):
//  1. If path is non-empty, read sets from that file.
//  2. Otherwise use assets/symbols.txt.
//
// The first set of the file is the default. Init runs once (sync.Once).

package symbols

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/tilematch/apps/go-server/assets"
)

// MaxCustom bounds the size of a caller supplied symbol list.
const MaxCustom = 32

var (
	initOnce   sync.Once
	names      []string            // file order
	sets       map[string][]string // keyed by lowercase name
	initialErr error
)

// Init loads symbol sets exactly once.
func Init(path string) error {
	initOnce.Do(func() {
		var lines []string
		var err error
		if path != "" {
			lines, err = readSetFile(path)
		} else {
			lines, err = assets.SymbolLines()
		}
		if err != nil {
			initialErr = err
			return
		}
		names, sets, initialErr = Parse(lines)
	})
	return initialErr
}

func readSetFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return assets.ReadLines(f)
}

// Parse turns "name: a b c" lines into sets, keeping the order of names.
func Parse(lines []string) ([]string, map[string][]string, error) {
	order := []string{}
	out := make(map[string][]string)
	for _, line := range lines {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, nil, fmt.Errorf("symbols: malformed line %q", line)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, nil, fmt.Errorf("symbols: missing set name in %q", line)
		}
		if _, dup := out[name]; dup {
			return nil, nil, fmt.Errorf("symbols: set %q defined twice", name)
		}
		list, err := distinct(strings.Fields(rest))
		if err != nil {
			return nil, nil, fmt.Errorf("symbols: set %q: %w", name, err)
		}
		order = append(order, name)
		out[name] = list
	}
	if len(order) == 0 {
		return nil, nil, errors.New("symbols: no symbol sets")
	}
	return order, out, nil
}

// Custom validates a caller supplied list: trimmed, non-empty entries,
// 1..MaxCustom of them, no repeats.
func Custom(list []string) ([]string, error) {
	clean := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) > MaxCustom {
		return nil, fmt.Errorf("at most %d symbols", MaxCustom)
	}
	return distinct(clean)
}

func distinct(list []string) ([]string, error) {
	if len(list) == 0 {
		return nil, errors.New("no symbols")
	}
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("symbol %q repeated", s)
		}
		seen[s] = struct{}{}
	}
	return list, nil
}

// Lookup returns a copy of the named set.
func Lookup(name string) ([]string, bool) {
	list, ok := sets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return append([]string(nil), list...), true
}

// Names lists the loaded sets in file order.
func Names() []string {
	return append([]string(nil), names...)
}

// Default is the first loaded set, or "" before Init.
func Default() string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Stats returns counts of loaded data: (sets, symbols).
func Stats() (setCount int, symbolCount int) {
	for _, list := range sets {
		symbolCount += len(list)
	}
	return len(sets), symbolCount
}
