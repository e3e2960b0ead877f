package votes

import "scorebot.dev/plusplus-bot/internal/chat"

// CheckFalsePositive is the heuristic gate between the extractor and
// the ledger. A downvote glyph at the end of an ordinary sentence is
// far more likely punctuation than a vote, so an intent with leading
// prose, a reason that lacks any conjunction and a negative operator
// is suppressed.
//
// Only the component booleans leave this function; the raw message
// never travels with the outcome.
func CheckFalsePositive(intent Intent) (chat.FalsePositiveFlags, bool) {
	var premessage, conjunction, reason string
	var delta int64

	switch v := intent.(type) {
	case SingleVote:
		premessage, conjunction, reason, delta = v.Premessage, v.Conjunction, v.Reason, v.Delta
	case MultiVote:
		premessage, conjunction, reason, delta = v.Premessage, v.Conjunction, v.Reason, v.Delta
	default:
		return chat.FalsePositiveFlags{}, false
	}

	flags := chat.FalsePositiveFlags{
		HasPremessage:      premessage != "",
		MissingConjunction: conjunction == "" && reason != "",
		NegativeOperator:   delta < 0,
	}
	suppress := flags.HasPremessage && flags.MissingConjunction && flags.NegativeOperator
	return flags, suppress
}
