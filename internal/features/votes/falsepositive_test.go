package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorebot.dev/plusplus-bot/internal/chat"
)

func TestFalsePositiveSuppressed(t *testing.T) {
	e := newTestExtractor()

	// A sentence ending in a dash reads as punctuation, not a downvote:
	// leading prose, negative operator, reason text with no conjunction.
	intent := e.Extract("well the deploy broke @derp-- again somehow", nil)
	require.NotNil(t, intent)

	flags, suppress := CheckFalsePositive(intent)
	assert.True(t, suppress)
	assert.True(t, flags.HasPremessage)
	assert.True(t, flags.MissingConjunction)
	assert.True(t, flags.NegativeOperator)
}

func TestFalsePositiveNotSuppressedWithConjunction(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("sorry but @derp-- because broken deploy", nil)
	require.NotNil(t, intent)

	flags, suppress := CheckFalsePositive(intent)
	assert.False(t, suppress)
	assert.False(t, flags.MissingConjunction)
}

func TestFalsePositiveNotSuppressedWithoutPremessage(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp-- sloppy review", nil)
	require.NotNil(t, intent)

	_, suppress := CheckFalsePositive(intent)
	assert.False(t, suppress)
}

func TestFalsePositiveNeverSuppressesUpvotes(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("so anyway @derp++ random trailing words", nil)
	require.NotNil(t, intent)

	flags, suppress := CheckFalsePositive(intent)
	assert.False(t, suppress)
	assert.False(t, flags.NegativeOperator)
}

func TestFalsePositiveMultiVote(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("ugh {@darf, @greg}-- flaky tests everywhere", nil)
	require.NotNil(t, intent)

	_, suppress := CheckFalsePositive(intent)
	assert.True(t, suppress)
}

func TestFalsePositiveIgnoresOtherIntents(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("score @derp", nil)
	require.NotNil(t, intent)

	flags, suppress := CheckFalsePositive(intent)
	assert.False(t, suppress)
	assert.Equal(t, chat.FalsePositiveFlags{}, flags)
}
