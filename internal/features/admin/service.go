// Authorization logic: the configured admin list, Argon2id password
// verification with brute-force lockout, and in-memory sessions.

package admin

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"scorebot.dev/plusplus-bot/internal/common"
	"scorebot.dev/plusplus-bot/internal/config"
)

const (
	maxAttempts   = 3
	attemptWindow = 1 * time.Hour
	sessionLength = 24 * time.Hour
)

type session struct {
	token     uuid.UUID
	expiresAt time.Time
}

// Service decides who may run destructive ledger operations.
type Service struct {
	attempts AttemptStore
	clock    clockwork.Clock
	cfg      *config.Config

	mu       sync.RWMutex
	sessions map[string]session // user key -> active session
}

// NewService creates the admin service.
func NewService(attempts AttemptStore, clock clockwork.Clock, cfg *config.Config) *Service {
	return &Service{
		attempts: attempts,
		clock:    clock,
		cfg:      cfg,
		sessions: make(map[string]session),
	}
}

// IsAdmin reports whether the user key is on the configured admin list.
func (s *Service) IsAdmin(userKey string) bool {
	for _, k := range s.cfg.AdminKeys {
		if k == userKey {
			return true
		}
	}
	return false
}

// Authorized reports whether the user may run an erase right now.
// Admin-list membership is always required; when a password hash is
// configured, an unexpired login session is required on top.
func (s *Service) Authorized(userKey string) bool {
	if !s.IsAdmin(userKey) {
		return false
	}
	if s.cfg.AdminPasswordHash == "" {
		return true
	}

	s.mu.RLock()
	sess, ok := s.sessions[userKey]
	s.mu.RUnlock()
	return ok && s.clock.Now().Before(sess.expiresAt)
}

// Login verifies the admin password and opens a session. Three failed
// attempts inside an hour lock the user out for the remainder of it.
func (s *Service) Login(ctx context.Context, userKey, password string) error {
	if !s.IsAdmin(userKey) {
		return common.ErrNotAdmin
	}
	if s.cfg.AdminPasswordHash == "" {
		return nil
	}

	failed, err := s.attempts.RecentAttempts(ctx, userKey, attemptWindow)
	if err != nil {
		return err
	}
	if failed >= maxAttempts {
		return common.ErrTooManyAttempts
	}

	match, err := verifyArgon2id(password, s.cfg.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if logErr := s.attempts.LogAttempt(ctx, userKey, match); logErr != nil {
		log.WithError(logErr).Warn("failed to record login attempt")
	}
	if !match {
		return common.ErrWrongPassword
	}

	s.mu.Lock()
	s.sessions[userKey] = session{
		token:     uuid.New(),
		expiresAt: s.clock.Now().Add(sessionLength),
	}
	s.mu.Unlock()

	log.WithField("user", userKey).Info("admin session opened")
	return nil
}

// verifyArgon2id checks a password against an encoded
// "$argon2id$v=19$m=..,t=..,p=..$salt$hash" string.
func verifyArgon2id(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed argon2id hash")
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("malformed argon2id parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
