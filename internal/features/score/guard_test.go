package score

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
)

func TestGuardRejectsBotSender(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore("plusplus", 1000, clock)
	guard := NewGuard(store, clock, 5*time.Minute)

	bot := chat.Identity{Key: "bot", DisplayName: "bot", IsBot: true}
	err := guard.Check(context.Background(), bot, "derp")
	assert.ErrorIs(t, err, common.ErrBotSender)
}

func TestGuardRejectsSelfVote(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore("plusplus", 1000, clock)
	guard := NewGuard(store, clock, 5*time.Minute)

	derp := chat.NameIdentity("derp")
	err := guard.Check(context.Background(), derp, "derp")
	assert.ErrorIs(t, err, common.ErrSelfVote)
}

func TestGuardSpamWindow(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore("plusplus", 1000, clock)
	guard := NewGuard(store, clock, 5*time.Minute)

	from := chat.NameIdentity("sender")

	// No history: the pair passes.
	require.NoError(t, guard.Check(ctx, from, "derp"))

	// Record a vote, then retry inside the window.
	_, err := store.FindOrCreate(ctx, "derp", "derp")
	require.NoError(t, err)
	_, err = store.ApplyDelta(ctx, "derp", 1, "", ScoreLogEntry{
		ID:        uuid.New(),
		FromKey:   "sender",
		ToKey:     "derp",
		CreatedAt: clock.Now(),
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	assert.ErrorIs(t, guard.Check(ctx, from, "derp"), common.ErrSpamWindow)

	// A different target is unaffected.
	assert.NoError(t, guard.Check(ctx, from, "greg"))

	// Once the window slides past the entry, the pair passes again.
	clock.Advance(5 * time.Minute)
	assert.NoError(t, guard.Check(ctx, from, "derp"))
}

func TestGuardWindowBoundary(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore("plusplus", 1000, clock)
	guard := NewGuard(store, clock, 5*time.Minute)

	_, err := store.FindOrCreate(ctx, "derp", "derp")
	require.NoError(t, err)
	_, err = store.ApplyDelta(ctx, "derp", 1, "", ScoreLogEntry{
		ID:        uuid.New(),
		FromKey:   "sender",
		ToKey:     "derp",
		CreatedAt: clock.Now(),
	})
	require.NoError(t, err)

	// An entry exactly at the window edge still counts as recent.
	clock.Advance(5 * time.Minute)
	assert.ErrorIs(t, guard.Check(ctx, chat.NameIdentity("sender"), "derp"), common.ErrSpamWindow)
}
