package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorebot.dev/plusplus-bot/internal/chat"
)

func newTestExtractor() *Extractor {
	return NewExtractor(NewTables(TablesConfig{}))
}

func TestExtractSingleVoteUp(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp++", nil)
	require.NotNil(t, intent)

	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "derp", vote.Target)
	assert.Equal(t, int64(1), vote.Delta)
	assert.Empty(t, vote.Premessage)
	assert.Empty(t, vote.Conjunction)
	assert.Empty(t, vote.Reason)
	assert.False(t, vote.Silent)
}

func TestExtractSingleVoteWithPremessage(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("you are the best @derp++", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "derp", vote.Target)
	assert.Equal(t, "you are the best", vote.Premessage)
}

func TestExtractSingleVoteWithConjunctionReason(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp++ thanks for helping me debug", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "thanks for", vote.Conjunction)
	assert.Equal(t, "helping me debug", vote.Reason)
}

func TestExtractSingleVoteReasonWithoutConjunction(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp++ the api fix", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Empty(t, vote.Conjunction)
	assert.Equal(t, "the api fix", vote.Reason)
}

func TestExtractSingleVoteDown(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp-- because broken deploy", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, int64(-1), vote.Delta)
	assert.Equal(t, "because", vote.Conjunction)
	assert.Equal(t, "broken deploy", vote.Reason)
}

func TestExtractEmDashDownvote(t *testing.T) {
	e := newTestExtractor()

	// Chat clients auto-convert "--" into an em dash.
	intent := e.Extract("@derp—", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "derp", vote.Target)
	assert.Equal(t, int64(-1), vote.Delta)
}

func TestExtractEmojiOperators(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp :+1: for the review", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, int64(1), vote.Delta)
	assert.Equal(t, "the review", vote.Reason)

	intent = e.Extract("@derp :thumbsdown::skin-tone-2:", nil)
	vote, ok = intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, int64(-1), vote.Delta)
}

func TestExtractEmojiGluedToName(t *testing.T) {
	e := newTestExtractor()

	// Operator directly after the name, no space.
	intent := e.Extract("@derp:+1:", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "derp", vote.Target)
	assert.Equal(t, int64(1), vote.Delta)
}

func TestExtractSilentFlags(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp++ --silent", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.True(t, vote.Silent)
	assert.Empty(t, vote.Reason)

	intent = e.Extract("@derp++ for the great talk -s", nil)
	vote, ok = intent.(SingleVote)
	require.True(t, ok)
	assert.True(t, vote.Silent)
	assert.Equal(t, "for", vote.Conjunction)
	assert.Equal(t, "the great talk", vote.Reason)
}

func TestExtractFirstLineOnly(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@derp++ nice work\nand some unrelated second line", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, "nice work", vote.Reason)

	// A marker on a later line never combines with the first.
	assert.Nil(t, e.Extract("hello there\n@derp++", nil))
}

func TestExtractMultiVote(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("{ @darf, @greg, @tank }++ just cuz", nil)
	require.NotNil(t, intent)

	multi, ok := intent.(MultiVote)
	require.True(t, ok)
	assert.Equal(t, []string{"darf", "greg", "tank"}, multi.Targets)
	assert.Equal(t, int64(1), multi.Delta)
	assert.Equal(t, "just", multi.Conjunction)
	assert.Equal(t, "cuz", multi.Reason)
}

func TestExtractMultiVoteBracketVariants(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{
		"[@darf @greg]--",
		"(@darf, @greg)--",
		"{@darf: @greg}--",
	} {
		multi, ok := e.Extract(text, nil).(MultiVote)
		require.True(t, ok, text)
		assert.Equal(t, []string{"darf", "greg"}, multi.Targets, text)
		assert.Equal(t, int64(-1), multi.Delta, text)
	}
}

func TestExtractMultiVoteDeduplicates(t *testing.T) {
	e := newTestExtractor()

	multi, ok := e.Extract("{@darf, @darf, @greg}++", nil).(MultiVote)
	require.True(t, ok)
	assert.Equal(t, []string{"darf", "greg"}, multi.Targets)
}

func TestExtractMultiVoteMentionCountMismatch(t *testing.T) {
	e := newTestExtractor()

	mentions := []chat.Mention{
		{Type: chat.MentionUser, ID: "U1", Name: "darf"},
		{Type: chat.MentionUser, ID: "U2", Name: "greg"},
		{Type: chat.MentionUser, ID: "U3", Name: "tank"},
	}

	// Parsed two targets, platform resolved three mentions: the split
	// cannot be trusted, the whole message is no match.
	assert.Nil(t, e.Extract("{@darf, @greg}++", mentions))

	// Counts agree, vote goes through.
	twoMentions := mentions[:2]
	intent := e.Extract("{@darf, @greg}++", twoMentions)
	require.NotNil(t, intent)
	_, ok := intent.(MultiVote)
	assert.True(t, ok)
}

func TestExtractMultiVoteChannelMentionsIgnored(t *testing.T) {
	e := newTestExtractor()

	mentions := []chat.Mention{
		{Type: chat.MentionUser, ID: "U1", Name: "darf"},
		{Type: chat.MentionUser, ID: "U2", Name: "greg"},
		{Type: chat.MentionChannel, ID: "C1", Name: "general"},
	}

	intent := e.Extract("{@darf, @greg}++", mentions)
	require.NotNil(t, intent)
	_, ok := intent.(MultiVote)
	assert.True(t, ok)
}

func TestExtractMultiVoteRequiresTwoMarkers(t *testing.T) {
	e := newTestExtractor()

	// A single marker in brackets is not a group, and the stray bracket
	// keeps the single-vote rule from firing either.
	assert.Nil(t, e.Extract("{@derp}++", nil))
}

func TestExtractTokenTransfer(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("@peter.parker.min + 55", nil)
	require.NotNil(t, intent)

	transfer, ok := intent.(TokenTransfer)
	require.True(t, ok)
	assert.Equal(t, "peter.parker.min", transfer.Target)
	assert.Equal(t, int64(55), transfer.Amount)
}

func TestExtractTokenTransferWithReason(t *testing.T) {
	e := newTestExtractor()

	transfer, ok := e.Extract("@derp +5 for lunch", nil).(TokenTransfer)
	require.True(t, ok)
	assert.Equal(t, int64(5), transfer.Amount)
	assert.Equal(t, "for", transfer.Conjunction)
	assert.Equal(t, "lunch", transfer.Reason)
}

func TestExtractTokenTransferNotPlusPlus(t *testing.T) {
	e := newTestExtractor()

	// "++ 5" is a vote with a reason, never a transfer.
	intent := e.Extract("@derp ++ 5", nil)
	vote, ok := intent.(SingleVote)
	require.True(t, ok)
	assert.Equal(t, int64(1), vote.Delta)
	assert.Equal(t, "5", vote.Reason)
}

func TestExtractScoreQuery(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{"score @derp", "score for @derp", "karma @derp"} {
		intent := e.Extract(text, nil)
		require.NotNil(t, intent, text)
		q, ok := intent.(ScoreQuery)
		require.True(t, ok, text)
		assert.Equal(t, "derp", q.Target, text)
	}
}

func TestExtractScoreQueryNotMidSentence(t *testing.T) {
	e := newTestExtractor()

	// The keyword must lead the message.
	assert.Nil(t, e.Extract("what is the score @derp", nil))
}

func TestExtractErase(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("erase @derp", nil)
	require.NotNil(t, intent)
	er, ok := intent.(Erase)
	require.True(t, ok)
	assert.Equal(t, "derp", er.Target)
	assert.Empty(t, er.Reason)

	er, ok = e.Extract("erase @derp because gaming the system", nil).(Erase)
	require.True(t, ok)
	assert.Equal(t, "gaming the system", er.Reason)

	er, ok = e.Extract("erase @derp gaming the system", nil).(Erase)
	require.True(t, ok)
	assert.Equal(t, "gaming the system", er.Reason)
}

func TestExtractEmailIsNotAVote(t *testing.T) {
	e := newTestExtractor()

	assert.Nil(t, e.Extract("mail derp@example.com++ please", nil))
}

func TestExtractNoMatch(t *testing.T) {
	e := newTestExtractor()

	for _, text := range []string{
		"",
		"just a normal message",
		"@derp",
		"@derp is great",
		"c++ is a language",
		"++",
		"the meeting -- as discussed -- moved",
	} {
		assert.Nil(t, e.Extract(text, nil), text)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor()

	text := "you rock @derp++ thanks for everything"
	first := e.Extract(text, nil)
	second := e.Extract(text, nil)
	assert.Equal(t, first, second)
}
