// Store on PostgreSQL. The reasons and points_given maps live in
// JSONB columns; score and log writes that must be atomic share one
// transaction, token moves lock their rows with FOR UPDATE.

package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scorebot.dev/plusplus-bot/internal/common"
)

const recordColumns = `id, key, display_name, score, reasons, points_given,
	token, account_level, total_points_given, anniversary_date, created_at, updated_at`

// Repository is the production Store over a pgx connection pool.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the score repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindOrCreate(ctx context.Context, key, displayName string) (*UserScoreRecord, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO scores (key, display_name)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, displayName)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return r.Find(ctx, key)
}

func (r *Repository) Find(ctx context.Context, key string) (*UserScoreRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM scores WHERE key = $1`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (r *Repository) ApplyDelta(ctx context.Context, key string, delta int64, reasonKey string, entry ScoreLogEntry) (*UserScoreRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delta tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Reasonless votes tally under the empty key, which keeps score
	// equal to the sum of the reason buckets at all times.
	row := tx.QueryRow(ctx, `
		UPDATE scores SET
			score = score + $2,
			reasons = jsonb_set(reasons, ARRAY[$3], to_jsonb(COALESCE((reasons->>$3)::bigint, 0) + $2)),
			updated_at = NOW()
		WHERE key = $1
		RETURNING `+recordColumns,
		key, delta, reasonKey)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delta tx: %w", err)
	}
	return rec, nil
}

func (r *Repository) IncrementPointsGiven(ctx context.Context, fromKey, encodedToKey string) (*UserScoreRecord, int64, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE scores SET
			points_given = jsonb_set(points_given, ARRAY[$2], to_jsonb(COALESCE((points_given->>$2)::bigint, 0) + 1)),
			total_points_given = total_points_given + 1,
			updated_at = NOW()
		WHERE key = $1
		RETURNING `+recordColumns,
		fromKey, encodedToKey)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("increment points given: %w", err)
	}
	return rec, rec.PointsGiven[encodedToKey], nil
}

func (r *Repository) ExistsInWindow(ctx context.Context, fromKey, toKey string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM score_log
			WHERE from_key = $1 AND to_key = $2 AND created_at >= $3
		)
	`, fromKey, toKey, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("spam window query: %w", err)
	}
	return exists, nil
}

func (r *Repository) TransferTokens(ctx context.Context, fromKey, toKey string, amount int64, entry ScoreLogEntry) (*UserScoreRecord, *UserScoreRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both rows in key order so two crossing transfers can't
	// deadlock.
	rows, err := tx.Query(ctx, `
		SELECT key, token, account_level FROM scores
		WHERE key = ANY($1) ORDER BY key FOR UPDATE
	`, []string{fromKey, toKey})
	if err != nil {
		return nil, nil, fmt.Errorf("lock transfer rows: %w", err)
	}
	balances := map[string]int64{}
	levels := map[string]int{}
	for rows.Next() {
		var key string
		var token int64
		var level int
		if err := rows.Scan(&key, &token, &level); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan transfer row: %w", err)
		}
		balances[key] = token
		levels[key] = level
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read transfer rows: %w", err)
	}
	if len(balances) != 2 {
		return nil, nil, common.ErrRecordNotFound
	}
	if levels[fromKey] < LevelTokens || levels[toKey] < LevelTokens {
		return nil, nil, common.ErrAccountLevelTooLow
	}
	if balances[fromKey] < amount {
		return nil, nil, common.ErrInsufficientTokens
	}

	if _, err := tx.Exec(ctx, `
		UPDATE scores SET token = token - $2, updated_at = NOW() WHERE key = $1
	`, fromKey, amount); err != nil {
		return nil, nil, fmt.Errorf("debit sender: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE scores SET token = token + $2, updated_at = NOW() WHERE key = $1
	`, toKey, amount); err != nil {
		return nil, nil, fmt.Errorf("credit recipient: %w", err)
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	from, err := scanRecord(tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM scores WHERE key = $1`, fromKey))
	if err != nil {
		return nil, nil, fmt.Errorf("reread sender: %w", err)
	}
	to, err := scanRecord(tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM scores WHERE key = $1`, toKey))
	if err != nil {
		return nil, nil, fmt.Errorf("reread recipient: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transfer tx: %w", err)
	}
	return from, to, nil
}

func (r *Repository) MintTokens(ctx context.Context, key string, amount int64) (*UserScoreRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mint tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var walletToken int64
	err = tx.QueryRow(ctx,
		`SELECT token FROM bot_wallet WHERE id = 1 FOR UPDATE`).Scan(&walletToken)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	var userToken int64
	err = tx.QueryRow(ctx,
		`SELECT token FROM scores WHERE key = $1 FOR UPDATE`, key).Scan(&userToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}

	if walletToken-amount < 0 || userToken+amount < 0 {
		return nil, common.ErrInsufficientTokens
	}

	if _, err := tx.Exec(ctx,
		`UPDATE bot_wallet SET token = token - $1 WHERE id = 1`, amount); err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	rec, err := scanRecord(tx.QueryRow(ctx, `
		UPDATE scores SET token = token + $2, updated_at = NOW()
		WHERE key = $1
		RETURNING `+recordColumns, key, amount))
	if err != nil {
		return nil, fmt.Errorf("credit record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mint tx: %w", err)
	}
	return rec, nil
}

func (r *Repository) EraseReason(ctx context.Context, key, reasonKey string) (*UserScoreRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin erase tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prior int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE((reasons->>$2)::bigint, 0) FROM scores WHERE key = $1 FOR UPDATE
	`, key, reasonKey).Scan(&prior)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read reason bucket: %w", err)
	}

	rec, err := scanRecord(tx.QueryRow(ctx, `
		UPDATE scores SET score = score - $2, reasons = reasons - $3, updated_at = NOW()
		WHERE key = $1
		RETURNING `+recordColumns, key, prior, reasonKey))
	if err != nil {
		return nil, fmt.Errorf("erase reason: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit erase tx: %w", err)
	}
	return rec, nil
}

func (r *Repository) DeleteRecord(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM scores WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (r *Repository) SetLevel(ctx context.Context, key string, level int) (*UserScoreRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `
		UPDATE scores SET account_level = $2, token = 0, updated_at = NOW()
		WHERE key = $1
		RETURNING `+recordColumns, key, level))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set level: %w", err)
	}
	return rec, nil
}

func (r *Repository) Wallet(ctx context.Context) (*BotWallet, error) {
	var w BotWallet
	err := r.db.QueryRow(ctx, `
		SELECT id, name, token, public_wallet_address FROM bot_wallet WHERE id = 1
	`).Scan(&w.ID, &w.Name, &w.Token, &w.PublicWalletAddress)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	return &w, nil
}

func (r *Repository) AllRecords(ctx context.Context) ([]*UserScoreRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM scores ORDER BY key`)
}

func (r *Repository) TopScores(ctx context.Context, limit int) ([]*UserScoreRecord, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM scores ORDER BY score DESC LIMIT $1`, limit)
}

func (r *Repository) ScoreChangesSince(ctx context.Context, since time.Time, limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_key, SUM(score_change), COUNT(*)
		FROM score_log
		WHERE created_at >= $1
		GROUP BY to_key
		ORDER BY SUM(score_change) DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Key, &row.Total, &row.Votes); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) AnniversariesOn(ctx context.Context, day time.Time) ([]*UserScoreRecord, error) {
	return r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM scores
		WHERE EXTRACT(MONTH FROM anniversary_date) = $1
		  AND EXTRACT(DAY FROM anniversary_date) = $2
		ORDER BY key
	`, int(day.Month()), day.Day())
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]*UserScoreRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*UserScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func insertLogEntry(ctx context.Context, tx pgx.Tx, entry ScoreLogEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO score_log (id, from_key, to_key, room, reason, score_change, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.FromKey, entry.ToKey, entry.Room, entry.Reason, entry.ScoreChange, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

// scanRecord reads one scores row; reasons and points_given arrive as
// raw JSONB.
func scanRecord(row pgx.Row) (*UserScoreRecord, error) {
	var rec UserScoreRecord
	var reasonsRaw, pointsRaw []byte
	err := row.Scan(
		&rec.ID, &rec.Key, &rec.DisplayName, &rec.Score, &reasonsRaw, &pointsRaw,
		&rec.Token, &rec.AccountLevel, &rec.TotalPointsGiven,
		&rec.AnniversaryDate, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Reasons, err = decodeTally(reasonsRaw); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if rec.PointsGiven, err = decodeTally(pointsRaw); err != nil {
		return nil, fmt.Errorf("decode points_given: %w", err)
	}
	return &rec, nil
}

func decodeTally(raw []byte) (map[string]int64, error) {
	out := make(map[string]int64)
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
