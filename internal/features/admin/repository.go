// Package admin implements administrator authorization for destructive
// ledger operations (erase). repository.go tracks login attempts for
// the brute-force lockout.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository works with the admin_login_attempts table.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates the admin repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AttemptStore is the subset the service needs; satisfied by
// Repository and by the in-memory store used in tests.
type AttemptStore interface {
	RecentAttempts(ctx context.Context, userKey string, window time.Duration) (int, error)
	LogAttempt(ctx context.Context, userKey string, success bool) error
}

// RecentAttempts counts failed logins by this user inside the window.
func (r *Repository) RecentAttempts(ctx context.Context, userKey string, window time.Duration) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE user_key = $1 AND success = FALSE AND attempt_time >= NOW() - $2::interval
	`, userKey, window).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count login attempts: %w", err)
	}
	return count, nil
}

// LogAttempt records one login attempt.
func (r *Repository) LogAttempt(ctx context.Context, userKey string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_login_attempts (user_key, success) VALUES ($1, $2)
	`, userKey, success)
	if err != nil {
		return fmt.Errorf("log login attempt: %w", err)
	}
	return nil
}
