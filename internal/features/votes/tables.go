// Package votes implements the intent parser: lexical tables, the typed
// Intent union, the extractor, and the false-positive filter. The parser
// is a pure function of (text, mentions, tables); tables are built once
// at startup and never mutated.
package votes

import (
	"fmt"
	"sort"
	"strings"
)

// Emoji spellings that count as votes. Each accepts an optional
// skin-tone suffix (skin-tone-1 through skin-tone-9).
var (
	positiveEmoji = []string{":+1:", ":thumbsup:", ":thumbsup_all:", ":clap:"}
	negativeEmoji = []string{":thumbsdown:"}
)

// Plain-text operator spellings. The en and em dashes are included in
// the negative set because chat clients auto-convert "--" into them.
var (
	positiveText = []string{"++"}
	negativeText = []string{"--", "–", "—"}
)

var defaultConjunctions = []string{
	"thanks for", "because", "porque", "cause", "just", "for", "cuz", "as",
}

var defaultScoreKeywords = []string{"score", "karma"}

var defaultSilentFlags = []string{"--silent", "-s"}

const defaultEraseKeyword = "erase"

// operator is one recognized spelling with its vote direction.
type operator struct {
	spelling string
	delta    int64
}

// Tables is the immutable lexical configuration consumed by the
// extractor. Build it once with NewTables and pass it by reference.
type Tables struct {
	operators     []operator // sorted longest spelling first
	conjunctions  []string   // sorted longest first
	scoreKeywords []string
	silentFlags   []string
	eraseKeyword  string
}

// TablesConfig carries optional overrides for the built-in lexicon.
// Empty slices mean "use the defaults".
type TablesConfig struct {
	PositiveOperators []string
	NegativeOperators []string
	Conjunctions      []string
	ScoreKeywords     []string
	EraseKeyword      string
}

// NewTables builds the lexical tables, expanding emoji spellings with
// their skin-tone variants. All matching against these tables is
// case-insensitive; entries are stored lowercased.
func NewTables(cfg TablesConfig) *Tables {
	positive := cfg.PositiveOperators
	if len(positive) == 0 {
		positive = expandOperators(positiveText, positiveEmoji)
	}
	negative := cfg.NegativeOperators
	if len(negative) == 0 {
		negative = expandOperators(negativeText, negativeEmoji)
	}

	t := &Tables{
		conjunctions:  lowerAll(orDefault(cfg.Conjunctions, defaultConjunctions)),
		scoreKeywords: lowerAll(orDefault(cfg.ScoreKeywords, defaultScoreKeywords)),
		silentFlags:   defaultSilentFlags,
		eraseKeyword:  strings.ToLower(orDefaultString(cfg.EraseKeyword, defaultEraseKeyword)),
	}

	for _, s := range positive {
		t.operators = append(t.operators, operator{spelling: strings.ToLower(s), delta: 1})
	}
	for _, s := range negative {
		t.operators = append(t.operators, operator{spelling: strings.ToLower(s), delta: -1})
	}

	// Longest-first so ":thumbsup::skin-tone-3:" wins over ":thumbsup:"
	// and "thanks for" over "for".
	sort.SliceStable(t.operators, func(i, j int) bool {
		return len(t.operators[i].spelling) > len(t.operators[j].spelling)
	})
	sort.SliceStable(t.conjunctions, func(i, j int) bool {
		return len(t.conjunctions[i]) > len(t.conjunctions[j])
	})

	return t
}

// expandOperators appends every skin-tone variant of each emoji
// spelling to the plain-text spellings.
func expandOperators(text, emoji []string) []string {
	out := append([]string{}, text...)
	for _, e := range emoji {
		out = append(out, e)
		for tone := 1; tone <= 9; tone++ {
			out = append(out, fmt.Sprintf("%s:skin-tone-%d:", e, tone))
		}
	}
	return out
}

// matchOperator reports the operator at the start of s, preferring the
// longest spelling. Comparison is case-insensitive.
func (t *Tables) matchOperator(s string) (delta int64, length int, ok bool) {
	for _, op := range t.operators {
		n := len(op.spelling)
		if len(s) >= n && strings.EqualFold(s[:n], op.spelling) {
			return op.delta, n, true
		}
	}
	return 0, 0, false
}

// matchConjunction reports the conjunction keyword at the start of s,
// which must be followed by whitespace.
func (t *Tables) matchConjunction(s string) (keyword string, length int, ok bool) {
	lower := strings.ToLower(s)
	for _, c := range t.conjunctions {
		if strings.HasPrefix(lower, c+" ") {
			return c, len(c), true
		}
	}
	return "", 0, false
}

// matchScoreKeyword reports the score-query keyword at the start of s.
func (t *Tables) matchScoreKeyword(s string) (length int, ok bool) {
	lower := strings.ToLower(s)
	for _, k := range t.scoreKeywords {
		if lower == k || strings.HasPrefix(lower, k+" ") {
			return len(k), true
		}
	}
	return 0, false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
