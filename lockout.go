package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxFailedAttempts is the number of consecutive failures that opens the
// lockout window.
var MaxFailedAttempts = 5

// LockoutWindow is the sliding period after the most recent failure during
// which a locked account rejects all signin attempts.
var LockoutWindow = "15m"

// LockoutPolicy derives the lock from the account's failure counter and the
// timestamp of its most recent failure. Nothing extra is stored: an account
// is locked while it has at least MaxAttempts failures and the most recent
// one is less than Window ago.
//
// The window slides on the *last* failure, not the one that opened it: a
// sixth failure arriving twenty minutes after the fifth evaluates unlocked,
// so failures trickling in more than a window apart never lock the account.
type LockoutPolicy struct {
	MaxAttempts int
	Window      string
}

// NewLockoutPolicy returns a policy with the package defaults.
func NewLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts: MaxFailedAttempts,
		Window:      LockoutWindow,
	}
}

// Locked evaluates the lockout invariant at the given time.
func (p LockoutPolicy) Locked(account *Account, now time.Time) bool {
	if account == nil || account.LastFailedAttempt == nil {
		return false
	}

	if account.FailedAttempts < p.maxAttempts() {
		return false
	}

	within, err := IsWithinThresholdPeriod(*account.LastFailedAttempt, now, p.window())
	if err != nil {
		return false
	}

	return within
}

// RecordFailure bumps the failure counter. The increment happens as a single
// atomic statement at the store, never a read-modify-write from this layer.
func (p LockoutPolicy) RecordFailure(ctx context.Context, store CredentialStore, id uuid.UUID, now time.Time) error {
	return store.IncrementFailedAttempts(ctx, id, now)
}

// Reset clears the counter. Invoked only after a fully successful signin.
func (p LockoutPolicy) Reset(ctx context.Context, store CredentialStore, id uuid.UUID) error {
	return store.ResetFailedAttempts(ctx, id)
}

func (p LockoutPolicy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return MaxFailedAttempts
}

func (p LockoutPolicy) window() string {
	if p.Window != "" {
		return p.Window
	}
	return LockoutWindow
}
