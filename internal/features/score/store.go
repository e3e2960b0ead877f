package score

import (
	"context"
	"time"
)

// Store is the persistence boundary the guard and engine write through.
// It is document-store shaped: find-or-create, upsert-with-increment,
// and windowed queries over the append-only log. The production
// implementation is Repository (PostgreSQL); tests use MemoryStore.
//
// Every call may suspend on I/O and must be treated as fallible.
// Callers must not assume ordering between concurrent mutations to
// different records.
type Store interface {
	// FindOrCreate resolves a record by stable key, lazily creating it
	// with score=0, level=1, token=0 on first reference.
	FindOrCreate(ctx context.Context, key, displayName string) (*UserScoreRecord, error)

	// Find returns the record or common.ErrRecordNotFound.
	Find(ctx context.Context, key string) (*UserScoreRecord, error)

	// ApplyDelta atomically adds delta to the record's score and to its
	// reasonKey bucket (reasonless votes use the empty key), and appends
	// the audit entry. Either everything commits or nothing does.
	ApplyDelta(ctx context.Context, key string, delta int64, reasonKey string, entry ScoreLogEntry) (*UserScoreRecord, error)

	// IncrementPointsGiven bumps the sender's counter for the encoded
	// recipient key and the monotonic total. Returns the updated sender
	// record and the post-increment per-recipient count.
	IncrementPointsGiven(ctx context.Context, fromKey, encodedToKey string) (*UserScoreRecord, int64, error)

	// ExistsInWindow reports whether a log entry for the (from,to) pair
	// exists at or after since. Best-effort rate-limit read, not a lock.
	ExistsInWindow(ctx context.Context, fromKey, toKey string, since time.Time) (bool, error)

	// TransferTokens moves amount tokens peer-to-peer and appends the
	// audit entry, all-or-nothing. Fails with common.ErrInsufficientTokens
	// or common.ErrAccountLevelTooLow without touching either balance.
	TransferTokens(ctx context.Context, fromKey, toKey string, amount int64, entry ScoreLogEntry) (from, to *UserScoreRecord, err error)

	// MintTokens moves amount tokens from the bot wallet to the record
	// (negative amounts move them back), all-or-nothing.
	MintTokens(ctx context.Context, key string, amount int64) (*UserScoreRecord, error)

	// EraseReason zeroes one reason bucket and subtracts its prior value
	// from the score, atomically.
	EraseReason(ctx context.Context, key, reasonKey string) (*UserScoreRecord, error)

	// DeleteRecord removes the record entirely.
	DeleteRecord(ctx context.Context, key string) error

	// SetLevel updates the account level and zeroes the token balance.
	SetLevel(ctx context.Context, key string, level int) (*UserScoreRecord, error)

	// Wallet returns the deployment's bot wallet.
	Wallet(ctx context.Context) (*BotWallet, error)

	// AllRecords streams every record, for consistency audits.
	AllRecords(ctx context.Context) ([]*UserScoreRecord, error)

	// TopScores returns the highest-scoring records.
	TopScores(ctx context.Context, limit int) ([]*UserScoreRecord, error)

	// ScoreChangesSince aggregates the log by recipient from since on.
	ScoreChangesSince(ctx context.Context, since time.Time, limit int) ([]LeaderboardRow, error)

	// AnniversariesOn lists records whose anniversary date falls on the
	// given day's month and day.
	AnniversariesOn(ctx context.Context, day time.Time) ([]*UserScoreRecord, error)
}
