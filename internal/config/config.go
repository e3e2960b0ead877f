// Package config loads the bot configuration from environment
// variables via envconfig. Everything, the lexical tables
// included, is read exactly once at startup; nothing re-reads the environment
// mid-parse.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds ALL application settings.
type Config struct {
	// --- Bot identity ---
	BotName string `envconfig:"BOT_NAME" default:"plusplus"`

	// --- Database ---
	// Inside Docker "localhost" is almost always wrong; default to the
	// compose service name and override DB_HOST=localhost locally.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"plusplus_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// How many messages we process in parallel; one goroutine per
	// message with no cap leaks memory under flood.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`

	// --- Ledger ---
	SpamWindow time.Duration `envconfig:"SPAM_WINDOW" default:"5m"`
	// Every Nth point sent to the same recipient triggers a nudge to
	// leave richer feedback.
	FeedbackThreshold int64 `envconfig:"FEEDBACK_THRESHOLD" default:"10"`
	// When false, votes never touch token balances regardless of
	// account level.
	TokenMintingEnabled bool `envconfig:"TOKEN_MINTING_ENABLED" default:"true"`
	// Tokens seeded into the bot wallet by the initial migration.
	WalletSeedTokens    int64  `envconfig:"WALLET_SEED_TOKENS" default:"1000000"`
	WalletPublicAddress string `envconfig:"WALLET_PUBLIC_ADDRESS" default:""`

	// --- Lexical tables (comma-separated overrides; empty = built-in) ---
	PositiveOperatorsRaw string `envconfig:"POSITIVE_OPERATORS" default:""`
	NegativeOperatorsRaw string `envconfig:"NEGATIVE_OPERATORS" default:""`
	ConjunctionsRaw      string `envconfig:"REASON_CONJUNCTIONS" default:""`
	ScoreKeywordsRaw     string `envconfig:"SCORE_KEYWORDS" default:""`
	EraseKeyword         string `envconfig:"ERASE_KEYWORD" default:""`

	// --- Admin ---
	AdminKeysRaw      string   `envconfig:"ADMIN_KEYS" default:""`
	AdminKeys         []string `envconfig:"-"` // filled by Load
	AdminPasswordHash string   `envconfig:"ADMIN_PASSWORD_HASH" default:""`

	// --- Rate limiting (per sender, before parsing) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	// Room the scheduler posts announcements into.
	AnnounceRoom        string `envconfig:"ANNOUNCE_ROOM" default:"general"`
	AuditCronSpec       string `envconfig:"AUDIT_CRON" default:"30 4 * * *"`
	AnniversaryCronSpec string `envconfig:"ANNIVERSARY_CRON" default:"0 9 * * *"`
	LeaderboardCronSpec string `envconfig:"LEADERBOARD_CRON" default:"0 10 * * 1"`
	LeaderboardSize     int    `envconfig:"LEADERBOARD_SIZE" default:"10"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// PositiveOperators returns the override list, nil for built-ins.
func (c *Config) PositiveOperators() []string { return splitCSV(c.PositiveOperatorsRaw) }

// NegativeOperators returns the override list, nil for built-ins.
func (c *Config) NegativeOperators() []string { return splitCSV(c.NegativeOperatorsRaw) }

// Conjunctions returns the override list, nil for built-ins.
func (c *Config) Conjunctions() []string { return splitCSV(c.ConjunctionsRaw) }

// ScoreKeywords returns the override list, nil for built-ins.
func (c *Config) ScoreKeywords() []string { return splitCSV(c.ScoreKeywordsRaw) }

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT must be > 0")
	}
	if c.SpamWindow <= 0 {
		return fmt.Errorf("SPAM_WINDOW must be > 0")
	}
	if c.FeedbackThreshold < 0 {
		return fmt.Errorf("FEEDBACK_THRESHOLD must be >= 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.WalletSeedTokens < 0 {
		return fmt.Errorf("WALLET_SEED_TOKENS must be >= 0")
	}
	return nil
}

// Load reads the environment and fills the Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.AdminKeys = splitCSV(cfg.AdminKeysRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
