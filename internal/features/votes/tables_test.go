package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchOperatorDefaults(t *testing.T) {
	tables := NewTables(TablesConfig{})

	cases := []struct {
		in    string
		delta int64
		n     int
	}{
		{"++", 1, 2},
		{"++ thanks", 1, 2},
		{"--", -1, 2},
		{"–", -1, len("–")},
		{"—", -1, len("—")},
		{":+1:", 1, 4},
		{":thumbsup:", 1, len(":thumbsup:")},
		{":thumbsdown:", -1, len(":thumbsdown:")},
		{":clap::skin-tone-4:", 1, len(":clap::skin-tone-4:")},
	}
	for _, c := range cases {
		delta, n, ok := tables.matchOperator(c.in)
		assert.True(t, ok, c.in)
		assert.Equal(t, c.delta, delta, c.in)
		assert.Equal(t, c.n, n, c.in)
	}
}

func TestMatchOperatorLongestWins(t *testing.T) {
	tables := NewTables(TablesConfig{})

	// The skin-tone variant must not be cut short at the base emoji.
	_, n, ok := tables.matchOperator(":thumbsup::skin-tone-3: nice")
	assert.True(t, ok)
	assert.Equal(t, len(":thumbsup::skin-tone-3:"), n)
}

func TestMatchOperatorNoMatch(t *testing.T) {
	tables := NewTables(TablesConfig{})

	for _, in := range []string{"", "+", "+ 5", "plus", ":shrug:"} {
		_, _, ok := tables.matchOperator(in)
		assert.False(t, ok, in)
	}
}

func TestMatchConjunction(t *testing.T) {
	tables := NewTables(TablesConfig{})

	kw, n, ok := tables.matchConjunction("thanks for helping out")
	assert.True(t, ok)
	assert.Equal(t, "thanks for", kw)
	assert.Equal(t, len("thanks for"), n)

	// Keyword without a following reason is not a conjunction.
	_, _, ok = tables.matchConjunction("for")
	assert.False(t, ok)

	// Case-insensitive.
	kw, _, ok = tables.matchConjunction("Because reasons")
	assert.True(t, ok)
	assert.Equal(t, "because", kw)
}

func TestMatchScoreKeyword(t *testing.T) {
	tables := NewTables(TablesConfig{})

	n, ok := tables.matchScoreKeyword("score for @derp")
	assert.True(t, ok)
	assert.Equal(t, len("score"), n)

	_, ok = tables.matchScoreKeyword("scoreboard update")
	assert.False(t, ok)

	_, ok = tables.matchScoreKeyword("karma @derp")
	assert.True(t, ok)
}

func TestTablesOverrides(t *testing.T) {
	tables := NewTables(TablesConfig{
		PositiveOperators: []string{"<3"},
		EraseKeyword:      "purge",
	})

	delta, _, ok := tables.matchOperator("<3")
	assert.True(t, ok)
	assert.Equal(t, int64(1), delta)

	// Default positives are replaced, defaults elsewhere survive.
	_, _, ok = tables.matchOperator("++")
	assert.False(t, ok)
	assert.Equal(t, "purge", tables.eraseKeyword)

	_, _, ok = tables.matchConjunction("because reasons")
	assert.True(t, ok)
}
