package votes

// Intent is the tagged union produced by the extractor. Exactly one of
// the concrete types below comes out of a successful parse; a nil
// Intent means the message matched nothing (the common case).
type Intent interface {
	isIntent()
}

// SingleVote increments or decrements one target.
type SingleVote struct {
	Target      string // normalized target name, marker stripped
	Premessage  string // free text preceding the marker, trimmed
	Delta       int64  // +1 or -1
	Conjunction string // reason-introducing keyword, "" if absent
	Reason      string // reason text, "" if absent
	Silent      bool   // suppress the conversational reply
}

// MultiVote applies one delta to each of several targets.
type MultiVote struct {
	Targets     []string // normalized, de-duplicated, first-seen order
	Premessage  string
	Delta       int64
	Conjunction string
	Reason      string
	Silent      bool
}

// Erase zeroes one reason bucket, or deletes the whole record when
// Reason is empty. Authorization is the caller's job.
type Erase struct {
	Target string
	Reason string
}

// TokenTransfer moves tokens peer-to-peer.
type TokenTransfer struct {
	Target      string
	Amount      int64
	Conjunction string
	Reason      string
}

// ScoreQuery asks for one user's current standing.
type ScoreQuery struct {
	Target string
}

func (SingleVote) isIntent()    {}
func (MultiVote) isIntent()     {}
func (Erase) isIntent()         {}
func (TokenTransfer) isIntent() {}
func (ScoreQuery) isIntent()    {}
