// Package chat defines the boundary to the chat platform: identities,
// inbound messages, and the notifier that carries structured outcomes
// back to the room. The bot core depends only on these types; concrete
// platform adapters live outside the module.
package chat

import "scorebot.dev/plusplus-bot/internal/common"

// Identity is the one concrete user reference used everywhere.
// Key is the platform user id when known, otherwise the normalized
// display name. Two identities are the same user iff their keys match.
type Identity struct {
	Key         string
	DisplayName string
	IsBot       bool
}

// NewIdentity builds an Identity from whatever the platform resolved.
// id may be empty for users only ever seen as free-text mentions.
func NewIdentity(id, name string, isBot bool) Identity {
	key := id
	if key == "" {
		key = common.NormalizeName(name)
	}
	return Identity{Key: key, DisplayName: name, IsBot: isBot}
}

// NameIdentity builds an Identity from a bare mention name parsed out
// of message text, with no platform id available.
func NameIdentity(name string) Identity {
	return Identity{Key: common.NormalizeName(name), DisplayName: name}
}

// Same reports whether two identities refer to the same user.
func (i Identity) Same(other Identity) bool {
	return i.Key != "" && i.Key == other.Key
}
