package middleware

import (
	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/chat"
)

// LogMessage logs an inbound message: sender, room, and the first 50
// characters of the text.
func LogMessage(msg chat.Message) {
	text := msg.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}

	log.WithFields(log.Fields{
		"from": msg.From.Key,
		"room": msg.Room,
		"text": text,
	}).Debug("inbound message")
}
