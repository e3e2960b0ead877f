// Package score implements the ledger: per-user score records, the
// append-only audit log, the bot wallet, the anti-abuse guard, and the
// engine that turns validated intents into mutations.
// models.go describes the stored records.
package score

import (
	"time"

	"github.com/google/uuid"
)

// Account levels gating token participation.
const (
	LevelBasic  = 1 // score only
	LevelTokens = 2 // token wallet active
	LevelWallet = 3 // external wallet bridge (managed outside this engine)
)

// UserScoreRecord is one user's ledger state. Key is the platform user
// id when known, otherwise the normalized display name.
//
// Invariant: Score == sum of all Reasons values, after every mutation.
type UserScoreRecord struct {
	ID          int64
	Key         string
	DisplayName string
	Score       int64
	// Reasons maps opaque reason keys (base64 of normalized text) to
	// signed tallies.
	Reasons map[string]int64
	// PointsGiven maps encoded recipient keys to how many points this
	// user has sent them.
	PointsGiven      map[string]int64
	Token            int64
	AccountLevel     int
	TotalPointsGiven int64
	AnniversaryDate  time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SumReasons returns the total of all reason tallies, for invariant
// checks against Score.
func (r *UserScoreRecord) SumReasons() int64 {
	var sum int64
	for _, v := range r.Reasons {
		sum += v
	}
	return sum
}

// ScoreLogEntry is one append-only audit row. Rows are never mutated
// after insert; the guard reads them for spam-window checks and the
// leaderboard aggregates over them.
type ScoreLogEntry struct {
	ID          uuid.UUID
	FromKey     string
	ToKey       string
	Room        string
	Reason      string // opaque reason key, "" when the vote had none
	ScoreChange int64
	CreatedAt   time.Time
}

// BotWallet is the deployment-wide token pool that minting draws from.
//
// Invariant: BotWallet.Token + sum of all UserScoreRecord.Token stays
// constant across mutations made by this engine.
type BotWallet struct {
	ID                  int64
	Name                string
	Token               int64
	PublicWalletAddress string
}

// LeaderboardRow is one aggregate over the score log, grouped by
// recipient within a time window. Consumed by announcement features
// outside the core.
type LeaderboardRow struct {
	Key   string
	Total int64
	Votes int64
}
