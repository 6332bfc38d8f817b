package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is the persistence collaborator for accounts. Not-found
// outcomes are reported through errors.IsNotFound so callers can tell a
// missing record from a store failure.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*Account, error)
	FindByResetToken(ctx context.Context, token string) (*Account, error)

	// InsertUnique persists a new account relying on the store's unique email
	// index; a duplicate email surfaces as a conflict, never as a
	// check-then-insert race.
	InsertUnique(ctx context.Context, record *Account) (*Account, error)

	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error

	// IncrementFailedAttempts applies failed_attempts = failed_attempts + 1
	// and stamps last_failed_attempt as a single atomic statement.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) error
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
}

// Mailer delivers out-of-band notifications. Failures are reported to the
// caller but never roll back the state change that triggered them.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendReset(ctx context.Context, email, token string) error
}

// PasswordHasher produces and verifies one-way password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A malformed digest is
	// a mismatch, not an error.
	Verify(plaintext, digest string) bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
