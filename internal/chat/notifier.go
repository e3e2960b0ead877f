package chat

import "context"

// EventKind tags the structured outcomes the core reports back to chat.
type EventKind string

const (
	EventVoteApplied    EventKind = "voteApplied"
	EventFalsePositive  EventKind = "falsePositive"
	EventAbuseRejected  EventKind = "abuseRejected"
	EventPrecondition   EventKind = "preconditionFailed"
	EventScoreReport    EventKind = "scoreReport"
	EventFeedbackNudge  EventKind = "feedbackNudge"
	EventAnniversary    EventKind = "anniversary"
	EventLeaderboard    EventKind = "leaderboard"
	EventInvariantAlert EventKind = "invariantAlert"
)

// FalsePositiveFlags carries the redaction-safe breakdown of why a
// vote was suppressed: one boolean per heuristic component, never the
// raw message text.
type FalsePositiveFlags struct {
	HasPremessage      bool
	MissingConjunction bool
	NegativeOperator   bool
}

// Event is one structured outcome delivered to the notifier. Fields
// are populated per kind; human-readable rendering is the notifier's
// job, not the core's.
type Event struct {
	Kind        EventKind
	Room        string
	To          Identity
	From        Identity
	Delta       int64
	ReasonKey   string
	GuardReason string
	Flags       FalsePositiveFlags
	Silent      bool
	// Detail carries kind-specific payloads (score reports,
	// leaderboard rows) as preformatted key/value pairs.
	Detail map[string]string
}

// Notifier receives structured outcomes for delivery back to chat.
// Implementations must not block indefinitely; the core treats every
// notification as best-effort.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
