package chat

import (
	"bufio"
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// ConsoleAdapter reads messages line by line from stdin. It exists for
// local development: every line is treated as a message from a single
// fixed sender in a fixed room.
type ConsoleAdapter struct {
	sender Identity
	room   string
	in     io.Reader
}

// NewConsoleAdapter creates a console adapter posting as the given
// sender into the given room.
func NewConsoleAdapter(sender Identity, room string) *ConsoleAdapter {
	return &ConsoleAdapter{sender: sender, room: room, in: os.Stdin}
}

// Messages starts reading stdin and streams one Message per line.
func (a *ConsoleAdapter) Messages(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)

	go func() {
		defer close(out)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			msg := Message{Text: scanner.Text(), From: a.sender, Room: a.room}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.WithError(err).Warn("console adapter: read failed")
		}
	}()

	return out, nil
}

// LogNotifier writes every event to the log instead of a chat room.
// Default notifier for console runs.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event Event) error {
	log.WithFields(log.Fields{
		"kind":   event.Kind,
		"room":   event.Room,
		"to":     event.To.Key,
		"from":   event.From.Key,
		"delta":  event.Delta,
		"reason": event.ReasonKey,
		"guard":  event.GuardReason,
	}).Info("outcome")
	return nil
}
