// Package jobs runs the background tasks: the daily ledger consistency
// audit, anniversary notices, and the weekly leaderboard announcement.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/common"
	"scorebot.dev/plusplus-bot/internal/config"
	"scorebot.dev/plusplus-bot/internal/features/score"
)

// Scheduler owns the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	store    score.Store
	notifier chat.Notifier
	clock    clockwork.Clock
	cfg      *config.Config
}

// NewScheduler creates the scheduler. Jobs run in UTC.
func NewScheduler(store score.Store, notifier chat.Notifier, clock clockwork.Clock, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		store:    store,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
	}
}

// Start registers and launches all background jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.AddFunc(s.cfg.AuditCronSpec, func() {
		log.Info("[CRON] ledger consistency audit")
		s.RunAudit(ctx)
	})

	s.cron.AddFunc(s.cfg.AnniversaryCronSpec, func() {
		log.Debug("[CRON] anniversary scan")
		s.RunAnniversaries(ctx)
	})

	s.cron.AddFunc(s.cfg.LeaderboardCronSpec, func() {
		log.Info("[CRON] weekly leaderboard")
		s.RunLeaderboard(ctx)
	})

	s.cron.Start()
	log.Info("job scheduler started (UTC)")
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("job scheduler stopped")
}

// RunAudit verifies the ledger invariants across all records. A
// violation should never occur given the write pattern; when one does
// it is loud: an Error log per finding plus an alert event.
func (s *Scheduler) RunAudit(ctx context.Context) {
	findings, err := score.AuditInvariants(ctx, s.store)
	if err != nil {
		log.WithError(err).Error("[CRON] audit failed")
		return
	}
	if len(findings) == 0 {
		log.Debug("[CRON] audit clean")
		return
	}

	for _, finding := range findings {
		log.WithError(common.ErrInvariantViolation).Error(finding)
	}
	s.notify(ctx, chat.Event{
		Kind: chat.EventInvariantAlert,
		Room: s.cfg.AnnounceRoom,
		Detail: map[string]string{
			"violations": strings.Join(findings, "; "),
		},
	})
}

// RunAnniversaries emits a notice for every record whose creation date
// falls on today's month and day, at least one year later. Rendering
// the cake-day message is the notifier's job.
func (s *Scheduler) RunAnniversaries(ctx context.Context) {
	today := s.clock.Now().UTC()
	records, err := s.store.AnniversariesOn(ctx, today)
	if err != nil {
		log.WithError(err).Error("[CRON] anniversary scan failed")
		return
	}

	for _, rec := range records {
		years := today.Year() - rec.AnniversaryDate.Year()
		if years < 1 {
			continue
		}
		s.notify(ctx, chat.Event{
			Kind: chat.EventAnniversary,
			Room: s.cfg.AnnounceRoom,
			To:   chat.Identity{Key: rec.Key, DisplayName: rec.DisplayName},
			Detail: map[string]string{
				"years": common.FormatCount(int64(years)),
			},
		})
	}
}

// RunLeaderboard aggregates the score log over the trailing week and
// announces the top recipients.
func (s *Scheduler) RunLeaderboard(ctx context.Context) {
	since := s.clock.Now().Add(-7 * 24 * time.Hour)
	rows, err := s.store.ScoreChangesSince(ctx, since, s.cfg.LeaderboardSize)
	if err != nil {
		log.WithError(err).Error("[CRON] leaderboard query failed")
		return
	}
	if len(rows) == 0 {
		return
	}

	detail := make(map[string]string, len(rows))
	for i, row := range rows {
		detail[fmt.Sprintf("%d", i+1)] = fmt.Sprintf("%s:%d", row.Key, row.Total)
	}
	s.notify(ctx, chat.Event{
		Kind:   chat.EventLeaderboard,
		Room:   s.cfg.AnnounceRoom,
		Detail: detail,
	})
}

func (s *Scheduler) notify(ctx context.Context, event chat.Event) {
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.WithError(err).WithField("kind", event.Kind).Warn("[CRON] notify failed")
	}
}
