package score

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
)

// Guard runs the anti-abuse checks in front of every ledger mutation:
// self-vote, bot origin, and the spam window. Checks short-circuit;
// the first failure wins and nothing is written.
//
// The spam-window check reads the audit log, so two near-simultaneous
// votes from the same pair can both pass it before either log row is
// visible. That race is accepted: this is a best-effort rate limiter,
// not a mutual-exclusion lock, and serializing requests to close it
// would wreck the latency profile.
type Guard struct {
	store  Store
	clock  clockwork.Clock
	window time.Duration
}

// NewGuard creates the anti-abuse guard over the given log store.
func NewGuard(store Store, clock clockwork.Clock, window time.Duration) *Guard {
	return &Guard{store: store, clock: clock, window: window}
}

// Check validates one (from, to) pair. Returns nil when the vote may
// proceed, or one of common.ErrBotSender, common.ErrSelfVote,
// common.ErrSpamWindow.
func (g *Guard) Check(ctx context.Context, from chat.Identity, toKey string) error {
	if from.IsBot {
		return common.ErrBotSender
	}
	if from.Key == toKey {
		return common.ErrSelfVote
	}

	since := g.clock.Now().Add(-g.window)
	recent, err := g.store.ExistsInWindow(ctx, from.Key, toKey, since)
	if err != nil {
		return fmt.Errorf("spam window lookup: %w", err)
	}
	if recent {
		return common.ErrSpamWindow
	}
	return nil
}
