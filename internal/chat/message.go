package chat

import "context"

// MentionType distinguishes user mentions from channel/group mentions
// in the platform-resolved mention list.
type MentionType string

const (
	MentionUser    MentionType = "user"
	MentionChannel MentionType = "channel"
)

// Mention is one platform-resolved mention attached to a message.
// Used to cross-validate multi-target parses against what the platform
// actually linked.
type Mention struct {
	Type MentionType
	ID   string
	Name string
}

// Message is one inbound chat message.
type Message struct {
	Text     string
	From     Identity
	Room     string
	Mentions []Mention
}

// Adapter delivers inbound messages from the platform. Implementations
// own connection handling and identity resolution; the bot only reads
// the channel until it closes.
type Adapter interface {
	// Messages returns the inbound stream. The channel is closed when
	// the adapter shuts down.
	Messages(ctx context.Context) (<-chan Message, error)
}
