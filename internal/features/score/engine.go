// The ledger engine: business logic that turns a validated intent
// into auditable mutations.

package score

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
	"scorebot.dev/plusplus-bot/internal/config"
)

// VoteResult is the committed outcome of one accepted mutation.
type VoteResult struct {
	To    *UserScoreRecord
	From  *UserScoreRecord
	Entry ScoreLogEntry
}

// Engine applies validated intents to the ledger. Expected business
// failures (guard rejections, precondition failures) come back as
// sentinel errors from internal/common; anything else is a persistence
// failure wrapped with context.
type Engine struct {
	store    Store
	guard    *Guard
	notifier chat.Notifier
	clock    clockwork.Clock
	cfg      *config.Config
}

// NewEngine creates the ledger engine.
func NewEngine(store Store, guard *Guard, notifier chat.Notifier, clock clockwork.Clock, cfg *config.Config) *Engine {
	return &Engine{store: store, guard: guard, notifier: notifier, clock: clock, cfg: cfg}
}

// ApplyVote applies one signed delta from one sender to one target.
// The target's score, reason bucket, and audit row commit atomically;
// sender-side bookkeeping and token minting are separate writes whose
// failures are logged as recoverable rather than unwinding the commit.
func (e *Engine) ApplyVote(ctx context.Context, from, to chat.Identity, room, reason string, delta int64) (*VoteResult, error) {
	toRec, err := e.store.FindOrCreate(ctx, to.Key, to.DisplayName)
	if err != nil {
		return nil, err
	}
	fromRec, err := e.store.FindOrCreate(ctx, from.Key, from.DisplayName)
	if err != nil {
		return nil, err
	}

	if err := e.guard.Check(ctx, from, to.Key); err != nil {
		return nil, err
	}

	reasonKey := common.EncodeReasonKey(reason)
	entry := ScoreLogEntry{
		ID:          uuid.New(),
		FromKey:     from.Key,
		ToKey:       to.Key,
		Room:        room,
		Reason:      reasonKey,
		ScoreChange: delta,
		CreatedAt:   e.clock.Now(),
	}

	toRec, err = e.store.ApplyDelta(ctx, to.Key, delta, reasonKey, entry)
	if err != nil {
		return nil, err
	}
	e.checkInvariant(toRec)

	fromRec = e.recordPointsGiven(ctx, fromRec, from, to, room)

	// Token minting mirrors the score change for leveled accounts. It
	// is a separate write: when it fails the vote stays committed and
	// the discrepancy is logged for recovery, never silently dropped.
	if e.cfg.TokenMintingEnabled && toRec.AccountLevel > LevelBasic && delta != 0 {
		minted, mintErr := e.store.MintTokens(ctx, to.Key, delta)
		if mintErr != nil {
			log.WithError(mintErr).WithFields(log.Fields{
				"to":    to.Key,
				"delta": delta,
			}).Error("token mint failed after committed score change")
		} else {
			toRec = minted
		}
	}

	return &VoteResult{To: toRec, From: fromRec, Entry: entry}, nil
}

// TransferTokens moves tokens peer-to-peer. Both parties must be at
// level 2+, the sender must hold the amount, and the same guard and
// bookkeeping as a vote apply. The bot wallet is not involved.
func (e *Engine) TransferTokens(ctx context.Context, from, to chat.Identity, room, reason string, amount int64) (*VoteResult, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	toRec, err := e.store.FindOrCreate(ctx, to.Key, to.DisplayName)
	if err != nil {
		return nil, err
	}
	fromRec, err := e.store.FindOrCreate(ctx, from.Key, from.DisplayName)
	if err != nil {
		return nil, err
	}
	if toRec.AccountLevel < LevelTokens || fromRec.AccountLevel < LevelTokens {
		return nil, common.ErrAccountLevelTooLow
	}
	if fromRec.Token < amount {
		return nil, common.ErrInsufficientTokens
	}

	if err := e.guard.Check(ctx, from, to.Key); err != nil {
		return nil, err
	}

	// Transfers leave the score untouched, so the audit row carries a
	// zero score change; it still feeds the spam window.
	entry := ScoreLogEntry{
		ID:        uuid.New(),
		FromKey:   from.Key,
		ToKey:     to.Key,
		Room:      room,
		Reason:    common.EncodeReasonKey(reason),
		CreatedAt: e.clock.Now(),
	}

	fromRec, toRec, err = e.store.TransferTokens(ctx, from.Key, to.Key, amount, entry)
	if err != nil {
		return nil, err
	}

	fromRec = e.recordPointsGiven(ctx, fromRec, from, to, room)

	return &VoteResult{To: toRec, From: fromRec, Entry: entry}, nil
}

// Erase zeroes one reason bucket, or deletes the whole record when the
// reason is empty. The engine knows nothing about roles; callers must
// have authorized the administrator already.
func (e *Engine) Erase(ctx context.Context, target chat.Identity, reason string) (*UserScoreRecord, error) {
	if reason == "" {
		return nil, e.store.DeleteRecord(ctx, target.Key)
	}

	rec, err := e.store.EraseReason(ctx, target.Key, common.EncodeReasonKey(reason))
	if err != nil {
		return nil, err
	}
	e.checkInvariant(rec)
	return rec, nil
}

// LevelUp transitions an account from level 1 to 2, zeroes its token
// balance, then mints the user's entire current score from the bot
// wallet in one bulk transfer.
func (e *Engine) LevelUp(ctx context.Context, user chat.Identity) (*UserScoreRecord, error) {
	rec, err := e.store.FindOrCreate(ctx, user.Key, user.DisplayName)
	if err != nil {
		return nil, err
	}
	if rec.AccountLevel >= LevelTokens {
		return nil, common.ErrAlreadyLeveled
	}

	rec, err = e.store.SetLevel(ctx, user.Key, LevelTokens)
	if err != nil {
		return nil, err
	}

	if e.cfg.TokenMintingEnabled && rec.Score > 0 {
		minted, mintErr := e.store.MintTokens(ctx, user.Key, rec.Score)
		if mintErr != nil {
			log.WithError(mintErr).WithField("user", user.Key).
				Error("bulk mint failed after level up")
			return rec, nil
		}
		rec = minted
	}
	return rec, nil
}

// Lookup resolves a record for a score query, creating it lazily like
// any other first reference.
func (e *Engine) Lookup(ctx context.Context, user chat.Identity) (*UserScoreRecord, error) {
	return e.store.FindOrCreate(ctx, user.Key, user.DisplayName)
}

// recordPointsGiven handles sender-side bookkeeping (steps that follow
// the target commit): the per-recipient counter, the monotonic total,
// and the every-Nth feedback nudge. Failures here never unwind the
// target's committed state.
func (e *Engine) recordPointsGiven(ctx context.Context, fromRec *UserScoreRecord, from, to chat.Identity, room string) *UserScoreRecord {
	updated, pairCount, err := e.store.IncrementPointsGiven(ctx, from.Key, common.EncodeRecipientKey(to.Key))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"from": from.Key,
			"to":   to.Key,
		}).Error("sender bookkeeping failed after committed vote")
		return fromRec
	}

	if e.cfg.FeedbackThreshold > 0 && pairCount%e.cfg.FeedbackThreshold == 0 {
		event := chat.Event{
			Kind: chat.EventFeedbackNudge,
			Room: room,
			From: from,
			To:   to,
			Detail: map[string]string{
				"pairCount": common.FormatCount(pairCount),
			},
		}
		if nerr := e.notifier.Notify(ctx, event); nerr != nil {
			log.WithError(nerr).Debug("feedback nudge not delivered")
		}
	}
	return updated
}

// checkInvariant verifies score == sum(reasons) on a freshly written
// record. A violation means corrupted state; it is surfaced loudly and
// never corrected in place.
func (e *Engine) checkInvariant(rec *UserScoreRecord) {
	if rec == nil {
		return
	}
	if sum := rec.SumReasons(); sum != rec.Score {
		log.WithError(common.ErrInvariantViolation).WithFields(log.Fields{
			"key":        rec.Key,
			"score":      rec.Score,
			"reasonsSum": sum,
		}).Error("ledger invariant violated")
	}
}

// IsGuardRejection reports whether err is one of the guard's sentinel
// rejections, for callers mapping errors onto outcome events.
func IsGuardRejection(err error) bool {
	return errors.Is(err, common.ErrSelfVote) ||
		errors.Is(err, common.ErrBotSender) ||
		errors.Is(err, common.ErrSpamWindow)
}
