package admin

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"scorebot.dev/plusplus-bot/internal/common"
	"scorebot.dev/plusplus-bot/internal/config"
)

// encodeTestHash produces the same encoded form as the
// scripts/generate_hash.go tool, with a fixed salt.
func encodeTestHash(password string) string {
	salt := []byte("0123456789abcdef")
	var (
		memory      uint32 = 8192
		iterations  uint32 = 1
		parallelism uint8  = 1
	)
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func newTestService(clock clockwork.Clock, passwordHash string) *Service {
	cfg := &config.Config{
		AdminKeys:         []string{"boss"},
		AdminPasswordHash: passwordHash,
	}
	return NewService(NewMemoryAttemptStore(clock), clock, cfg)
}

func TestIsAdmin(t *testing.T) {
	s := newTestService(clockwork.NewFakeClock(), "")

	assert.True(t, s.IsAdmin("boss"))
	assert.False(t, s.IsAdmin("derp"))
}

func TestAuthorizedWithoutPasswordHash(t *testing.T) {
	s := newTestService(clockwork.NewFakeClock(), "")

	// List membership alone suffices when no password is configured.
	assert.True(t, s.Authorized("boss"))
	assert.False(t, s.Authorized("derp"))
}

func TestLoginOpensSession(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := newTestService(clock, encodeTestHash("hunter2"))

	// No session yet, even for a listed admin.
	assert.False(t, s.Authorized("boss"))

	require.NoError(t, s.Login(ctx, "boss", "hunter2"))
	assert.True(t, s.Authorized("boss"))

	// Sessions expire.
	clock.Advance(25 * time.Hour)
	assert.False(t, s.Authorized("boss"))
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := newTestService(clock, encodeTestHash("hunter2"))

	assert.ErrorIs(t, s.Login(ctx, "boss", "wrong"), common.ErrWrongPassword)
	assert.False(t, s.Authorized("boss"))
}

func TestLoginNonAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestService(clockwork.NewFakeClock(), encodeTestHash("hunter2"))

	assert.ErrorIs(t, s.Login(ctx, "derp", "hunter2"), common.ErrNotAdmin)
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := newTestService(clock, encodeTestHash("hunter2"))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, s.Login(ctx, "boss", "wrong"), common.ErrWrongPassword)
	}

	// Locked out now, even with the right password.
	assert.ErrorIs(t, s.Login(ctx, "boss", "hunter2"), common.ErrTooManyAttempts)

	// The window slides; an hour later logins work again.
	clock.Advance(61 * time.Minute)
	assert.NoError(t, s.Login(ctx, "boss", "hunter2"))
	assert.True(t, s.Authorized("boss"))
}

func TestVerifyArgon2idMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	} {
		_, err := verifyArgon2id("pw", encoded)
		assert.Error(t, err, encoded)
	}
}
