// Package app assembles the application: database pool, repositories,
// guard, engine, bot, and scheduler. Initialization order matters;
// components depend on each other.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"scorebot.dev/plusplus-bot/internal/bot"
	"scorebot.dev/plusplus-bot/internal/chat"
	"scorebot.dev/plusplus-bot/internal/config"
	"scorebot.dev/plusplus-bot/internal/db/postgres"
	"scorebot.dev/plusplus-bot/internal/features/admin"
	"scorebot.dev/plusplus-bot/internal/features/score"
	"scorebot.dev/plusplus-bot/internal/features/votes"
	"scorebot.dev/plusplus-bot/internal/jobs"
)

// App holds the assembled components.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
}

// New creates and initializes the application. The chat adapter and
// notifier are external collaborators injected by the caller.
func New(ctx context.Context, cfg *config.Config, adapter chat.Adapter, notifier chat.Notifier) (*App, error) {
	// === 1. Database ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	if err := seedWallet(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("wallet seed: %w", err)
	}

	// === 2. Lexical tables (read once, immutable from here on) ===
	tables := votes.NewTables(votes.TablesConfig{
		PositiveOperators: cfg.PositiveOperators(),
		NegativeOperators: cfg.NegativeOperators(),
		Conjunctions:      cfg.Conjunctions(),
		ScoreKeywords:     cfg.ScoreKeywords(),
		EraseKeyword:      cfg.EraseKeyword,
	})
	extractor := votes.NewExtractor(tables)

	// === 3. Ledger ===
	clock := clockwork.NewRealClock()
	repo := score.NewRepository(pool)
	guard := score.NewGuard(repo, clock, cfg.SpamWindow)
	engine := score.NewEngine(repo, guard, notifier, clock, cfg)

	// === 4. Admin ===
	adminService := admin.NewService(admin.NewRepository(pool), clock, cfg)

	// === 5. Bot + scheduler ===
	b := bot.New(cfg, adapter, notifier, extractor, engine, adminService)
	scheduler := jobs.NewScheduler(repo, notifier, clock, cfg)

	return &App{Bot: b, Scheduler: scheduler, DB: pool}, nil
}

// runMigrations applies all embedded SQL migrations in order.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Scores},
		{2, migration002ScoreLog},
		{3, migration003BotWallet},
		{4, migration004Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		log.Infof("migration %d applied", m.version)
	}
	return nil
}

// seedWallet inserts the singleton bot wallet row on first boot.
func seedWallet(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO bot_wallet (id, name, token, public_wallet_address)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, cfg.BotName, cfg.WalletSeedTokens, cfg.WalletPublicAddress)
	return err
}

// SQL migrations are embedded in code to simplify deployment.

var migration001Scores = `
CREATE TABLE IF NOT EXISTS scores (
    id BIGSERIAL PRIMARY KEY,
    key VARCHAR(255) UNIQUE NOT NULL,
    display_name VARCHAR(255) NOT NULL DEFAULT '',
    score BIGINT NOT NULL DEFAULT 0,
    reasons JSONB NOT NULL DEFAULT '{}',
    points_given JSONB NOT NULL DEFAULT '{}',
    token BIGINT NOT NULL DEFAULT 0,
    account_level INTEGER NOT NULL DEFAULT 1,
    total_points_given BIGINT NOT NULL DEFAULT 0,
    anniversary_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_scores_key ON scores(key);
CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);
`

var migration002ScoreLog = `
CREATE TABLE IF NOT EXISTS score_log (
    id UUID PRIMARY KEY,
    from_key VARCHAR(255) NOT NULL,
    to_key VARCHAR(255) NOT NULL,
    room VARCHAR(255) NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    score_change BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_score_log_pair ON score_log(from_key, to_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_score_log_created_at ON score_log(created_at DESC);
`

var migration003BotWallet = `
CREATE TABLE IF NOT EXISTS bot_wallet (
    id BIGINT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    token BIGINT NOT NULL DEFAULT 0,
    public_wallet_address VARCHAR(255) NOT NULL DEFAULT ''
);
`

var migration004Admin = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_key VARCHAR(255) NOT NULL,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_user ON admin_login_attempts(user_key, attempt_time DESC);
`
