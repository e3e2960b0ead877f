// Sentinel errors shared across the bot. Handlers compare against
// these with errors.Is to decide which structured outcome to send back
// to chat.

package common

import "errors"

// Guard rejections. Any of these aborts a vote before the first write.
var (
	// ErrSelfVote: sender and target resolve to the same identity
	ErrSelfVote = errors.New("you can't vote for yourself")
	// ErrBotSender: the sending identity carries the bot flag
	ErrBotSender = errors.New("bots don't get to vote")
	// ErrSpamWindow: same (from,to) pair already voted inside the window
	ErrSpamWindow = errors.New("you already voted for this user recently")
)

// Precondition failures (token economy).
var (
	// ErrInsufficientTokens: sender wallet holds less than the requested amount
	ErrInsufficientTokens = errors.New("not enough tokens in your wallet")
	// ErrAccountLevelTooLow: one of the parties has not opted into tokens
	ErrAccountLevelTooLow = errors.New("both accounts must be level 2 or higher")
	// ErrAlreadyLeveled: level-up requested for an account already at level 2+
	ErrAlreadyLeveled = errors.New("account is already leveled up")
	// ErrInvalidAmount: zero or negative transfer amount
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrRecordNotFound: no score record for the given key
	ErrRecordNotFound = errors.New("user not found")
)

// Admin errors.
var (
	// ErrNotAdmin: sender is not an administrator
	ErrNotAdmin = errors.New("administrator privileges required")
	// ErrWrongPassword: login password does not match the stored hash
	ErrWrongPassword = errors.New("wrong password")
	// ErrTooManyAttempts: brute-force lockout triggered
	ErrTooManyAttempts = errors.New("too many login attempts, wait an hour")
	// ErrSessionExpired: admin session no longer valid
	ErrSessionExpired = errors.New("session expired, log in again")
)

// ErrInvariantViolation: score != sum of reason tallies, or wallet
// conservation broken. Should never happen; surfaced loudly, never
// silently corrected.
var ErrInvariantViolation = errors.New("ledger invariant violation")
