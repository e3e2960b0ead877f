// Package bot contains the message pump: it consumes inbound chat
// messages, runs them through the parser, the false-positive filter,
// and the ledger engine, and reports structured outcomes through the
// notifier.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/bot/middleware"
	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
	"scorebot.dev/plusplus-bot/internal/config"
	"scorebot.dev/plusplus-bot/internal/features/admin"
	"scorebot.dev/plusplus-bot/internal/features/score"
	"scorebot.dev/plusplus-bot/internal/features/votes"
)

// Bot wires the parser and the ledger engine to a chat adapter.
type Bot struct {
	cfg       *config.Config
	adapter   chat.Adapter
	notifier  chat.Notifier
	extractor *votes.Extractor
	engine    *score.Engine
	admin     *admin.Service

	rateLimiter *middleware.RateLimiter

	// caps how many messages are processed in parallel
	inflight chan struct{}
}

// New creates the bot.
func New(
	cfg *config.Config,
	adapter chat.Adapter,
	notifier chat.Notifier,
	extractor *votes.Extractor,
	engine *score.Engine,
	adminService *admin.Service,
) *Bot {
	maxInflight := cfg.BotMaxInflight
	if maxInflight <= 0 {
		maxInflight = 64
	}

	return &Bot{
		cfg:         cfg,
		adapter:     adapter,
		notifier:    notifier,
		extractor:   extractor,
		engine:      engine,
		admin:       adminService,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		inflight:    make(chan struct{}, maxInflight),
	}
}

// Start consumes the adapter's message stream until the context is
// canceled or the stream closes. Each message is an independent unit
// of work.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	messages, err := b.adapter.Messages(ctx)
	if err != nil {
		return err
	}

	log.WithField("max_inflight", cap(b.inflight)).Info("bot is listening")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil

		case msg, ok := <-messages:
			if !ok {
				wg.Wait()
				return nil
			}
			b.inflight <- struct{}{}
			wg.Add(1)
			go func(m chat.Message) {
				defer func() { <-b.inflight; wg.Done() }()
				b.HandleMessage(ctx, m)
			}(msg)
		}
	}
}

// HandleMessage processes one inbound message end to end.
func (b *Bot) HandleMessage(ctx context.Context, msg chat.Message) {
	defer middleware.RecoverFromPanic()
	middleware.LogMessage(msg)

	if !b.rateLimiter.Allow(msg.From.Key) {
		log.WithField("from", msg.From.Key).Debug("rate limited")
		return
	}

	if b.handleCommand(ctx, msg) {
		return
	}

	intent := b.extractor.Extract(msg.Text, msg.Mentions)
	if intent == nil {
		// The normal case: most chat messages are just chat.
		return
	}

	switch v := intent.(type) {
	case votes.SingleVote:
		b.handleSingleVote(ctx, msg, v)
	case votes.MultiVote:
		b.handleMultiVote(ctx, msg, v)
	case votes.Erase:
		b.handleErase(ctx, msg, v)
	case votes.TokenTransfer:
		b.handleTokenTransfer(ctx, msg, v)
	case votes.ScoreQuery:
		b.handleScoreQuery(ctx, msg, v)
	}
}

// handleCommand catches the few plain commands that are not vote
// grammar: admin login and the token-economy opt-in.
func (b *Bot) handleCommand(ctx context.Context, msg chat.Message) bool {
	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, "login ") {
		password := strings.TrimSpace(text[len("login "):])
		if err := b.admin.Login(ctx, msg.From.Key, password); err != nil {
			log.WithError(err).WithField("from", msg.From.Key).Info("admin login failed")
		}
		return true
	}

	if lower == "level up my account" || lower == "levelup" {
		b.handleLevelUp(ctx, msg)
		return true
	}

	return false
}

func (b *Bot) handleSingleVote(ctx context.Context, msg chat.Message, vote votes.SingleVote) {
	if flags, suppressed := votes.CheckFalsePositive(vote); suppressed {
		b.notify(ctx, chat.Event{
			Kind:  chat.EventFalsePositive,
			Room:  msg.Room,
			Flags: flags,
		})
		return
	}

	to := b.resolveTarget(vote.Target, msg.Mentions)
	b.applyOne(ctx, msg, to, vote.Reason, vote.Delta, vote.Silent)
}

// handleMultiVote fans out one engine invocation per target, all
// concurrent, and settles every outcome individually: one target's
// rejection never aborts the others.
func (b *Bot) handleMultiVote(ctx context.Context, msg chat.Message, vote votes.MultiVote) {
	if flags, suppressed := votes.CheckFalsePositive(vote); suppressed {
		b.notify(ctx, chat.Event{
			Kind:  chat.EventFalsePositive,
			Room:  msg.Room,
			Flags: flags,
		})
		return
	}

	var wg sync.WaitGroup
	for _, target := range vote.Targets {
		to := b.resolveTarget(target, msg.Mentions)
		wg.Add(1)
		go func(to chat.Identity) {
			defer wg.Done()
			defer middleware.RecoverFromPanic()
			b.applyOne(ctx, msg, to, vote.Reason, vote.Delta, vote.Silent)
		}(to)
	}
	wg.Wait()
}

// applyOne runs one vote leg through the engine and reports the
// outcome.
func (b *Bot) applyOne(ctx context.Context, msg chat.Message, to chat.Identity, reason string, delta int64, silent bool) {
	result, err := b.engine.ApplyVote(ctx, msg.From, to, msg.Room, reason, delta)
	if err != nil {
		b.reportFailure(ctx, msg, to, err)
		return
	}

	if silent {
		return
	}
	b.notify(ctx, chat.Event{
		Kind:      chat.EventVoteApplied,
		Room:      msg.Room,
		To:        to,
		From:      msg.From,
		Delta:     delta,
		ReasonKey: result.Entry.Reason,
		Detail: map[string]string{
			"score": common.FormatCount(result.To.Score),
		},
	})
}

func (b *Bot) handleErase(ctx context.Context, msg chat.Message, erase votes.Erase) {
	if !b.admin.Authorized(msg.From.Key) {
		b.notify(ctx, chat.Event{
			Kind:        chat.EventPrecondition,
			Room:        msg.Room,
			From:        msg.From,
			GuardReason: common.ErrNotAdmin.Error(),
		})
		return
	}

	target := b.resolveTarget(erase.Target, msg.Mentions)
	rec, err := b.engine.Erase(ctx, target, erase.Reason)
	if err != nil {
		b.reportFailure(ctx, msg, target, err)
		return
	}

	detail := map[string]string{"erased": erase.Target}
	if rec != nil {
		detail["score"] = common.FormatCount(rec.Score)
	}
	b.notify(ctx, chat.Event{
		Kind:   chat.EventScoreReport,
		Room:   msg.Room,
		To:     target,
		From:   msg.From,
		Detail: detail,
	})
}

func (b *Bot) handleTokenTransfer(ctx context.Context, msg chat.Message, transfer votes.TokenTransfer) {
	to := b.resolveTarget(transfer.Target, msg.Mentions)
	result, err := b.engine.TransferTokens(ctx, msg.From, to, msg.Room, transfer.Reason, transfer.Amount)
	if err != nil {
		b.reportFailure(ctx, msg, to, err)
		return
	}

	b.notify(ctx, chat.Event{
		Kind:      chat.EventVoteApplied,
		Room:      msg.Room,
		To:        to,
		From:      msg.From,
		Delta:     transfer.Amount,
		ReasonKey: result.Entry.Reason,
		Detail: map[string]string{
			"type":           "tokenTransfer",
			"senderTokens":   common.FormatCount(result.From.Token),
			"receiverTokens": common.FormatCount(result.To.Token),
		},
	})
}

func (b *Bot) handleScoreQuery(ctx context.Context, msg chat.Message, query votes.ScoreQuery) {
	target := b.resolveTarget(query.Target, msg.Mentions)
	rec, err := b.engine.Lookup(ctx, target)
	if err != nil {
		b.reportFailure(ctx, msg, target, err)
		return
	}

	b.notify(ctx, chat.Event{
		Kind: chat.EventScoreReport,
		Room: msg.Room,
		To:   target,
		From: msg.From,
		Detail: map[string]string{
			"score":  common.FormatCount(rec.Score),
			"tokens": common.FormatCount(rec.Token),
			"level":  common.FormatCount(int64(rec.AccountLevel)),
		},
	})
}

func (b *Bot) handleLevelUp(ctx context.Context, msg chat.Message) {
	rec, err := b.engine.LevelUp(ctx, msg.From)
	if err != nil {
		b.reportFailure(ctx, msg, msg.From, err)
		return
	}

	b.notify(ctx, chat.Event{
		Kind: chat.EventScoreReport,
		Room: msg.Room,
		To:   msg.From,
		From: msg.From,
		Detail: map[string]string{
			"level":  common.FormatCount(int64(rec.AccountLevel)),
			"tokens": common.FormatCount(rec.Token),
		},
	})
}

// reportFailure maps an engine error onto the outcome taxonomy: guard
// rejections and precondition failures carry their specific reason,
// persistence failures are logged with context and surfaced as a
// generic message, never as success.
func (b *Bot) reportFailure(ctx context.Context, msg chat.Message, to chat.Identity, err error) {
	switch {
	case score.IsGuardRejection(err):
		b.notify(ctx, chat.Event{
			Kind:        chat.EventAbuseRejected,
			Room:        msg.Room,
			To:          to,
			From:        msg.From,
			GuardReason: err.Error(),
		})

	case errors.Is(err, common.ErrInsufficientTokens),
		errors.Is(err, common.ErrAccountLevelTooLow),
		errors.Is(err, common.ErrAlreadyLeveled),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrRecordNotFound):
		b.notify(ctx, chat.Event{
			Kind:        chat.EventPrecondition,
			Room:        msg.Room,
			To:          to,
			From:        msg.From,
			GuardReason: err.Error(),
		})

	default:
		log.WithError(err).WithFields(log.Fields{
			"from": msg.From.Key,
			"to":   to.Key,
			"room": msg.Room,
		}).Error("ledger operation failed")
		b.notify(ctx, chat.Event{
			Kind:        chat.EventPrecondition,
			Room:        msg.Room,
			To:          to,
			From:        msg.From,
			GuardReason: "temporary failure, please try again",
		})
	}
}

// resolveTarget upgrades a parsed name to a platform identity when the
// message carried a matching resolved mention.
func (b *Bot) resolveTarget(name string, mentions []chat.Mention) chat.Identity {
	for _, m := range mentions {
		if m.Type != chat.MentionUser {
			continue
		}
		if common.NormalizeName(m.Name) == name {
			return chat.NewIdentity(m.ID, m.Name, false)
		}
	}
	return chat.NameIdentity(name)
}

func (b *Bot) notify(ctx context.Context, event chat.Event) {
	if err := b.notifier.Notify(ctx, event); err != nil {
		log.WithError(err).WithField("kind", event.Kind).Error("failed to deliver outcome")
	}
}
