package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitEmbedded(t *testing.T) {
	require.NoError(t, Init(""))

	assert.Equal(t, "party", Default())
	party, ok := Lookup("Party")
	require.True(t, ok)
	assert.Equal(t, []string{"🎨", "🎭", "🎪", "🎯", "🎲", "🎸"}, party)

	party[0] = "x"
	again, _ := Lookup("party")
	assert.Equal(t, "🎨", again[0], "Lookup must return a copy")

	_, ok = Lookup("nope")
	assert.False(t, ok)

	sets, syms := Stats()
	assert.Equal(t, len(Names()), sets)
	assert.Greater(t, syms, sets)
}

func TestParse(t *testing.T) {
	names, sets, err := Parse([]string{"Zoo: a b", "abc: x y z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zoo", "abc"}, names)
	assert.Equal(t, []string{"a", "b"}, sets["zoo"])
	assert.Equal(t, []string{"x", "y", "z"}, sets["abc"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"empty file", nil},
		{"no colon", []string{"party a b"}},
		{"no name", []string{": a b"}},
		{"no symbols", []string{"party:"}},
		{"repeated symbol", []string{"party: a b a"}},
		{"repeated set", []string{"p: a", "P: b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.lines)
			assert.Error(t, err)
		})
	}
}

func TestCustom(t *testing.T) {
	list, err := Custom([]string{" a ", "", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	_, err = Custom([]string{"", " "})
	assert.Error(t, err)

	_, err = Custom([]string{"a", "a"})
	assert.Error(t, err)

	many := make([]string, MaxCustom+1)
	for i := range many {
		many[i] = string(rune('A' + i))
	}
	_, err = Custom(many)
	assert.Error(t, err)
}
