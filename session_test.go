package accounts_test

import (
	"strings"
	"testing"
	"time"

	accounts "github.com/calderan/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *accounts.Account {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &accounts.Account{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Phone:        "+15550001111",
		PasswordHash: "$2a$14$notarealdigest",
		Role:         accounts.RoleUser,
		Verified:     true,
		CreatedAt:    &created,
	}
}

func newTestIssuer(t *testing.T) *accounts.SessionIssuer {
	t.Helper()
	signer := accounts.NewTokenSigner(signerTestKey, nil)
	return accounts.NewSessionIssuer(signer, accounts.DefaultSessionTTL)
}

func TestSessionIssueAndAuthenticate(t *testing.T) {
	issuer := newTestIssuer(t)
	account := testAccount()

	token, claims, err := issuer.Issue(account)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	assert.Equal(t, account.ID.String(), claims.AccountID())
	assert.Equal(t, account.Email, claims.Email())
	assert.Equal(t, "user", claims.Role())

	decoded, err := issuer.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), decoded.AccountID())
	assert.Equal(t, account.Email, decoded.Email())
}

func TestSessionClaimsExcludeSensitiveFields(t *testing.T) {
	issuer := newTestIssuer(t)

	account := testAccount()
	verification := "aaaa"
	reset := "bbbb"
	account.VerificationToken = &verification
	account.ResetToken = &reset
	account.FailedAttempts = 3

	_, claims, err := issuer.Issue(account)
	require.NoError(t, err)

	for key := range claims {
		assert.NotContains(t, []string{
			"password_hash", "verification_token", "reset_token",
			"failed_attempts", "last_failed_attempt",
		}, key)
	}

	for _, value := range claims {
		if s, ok := value.(string); ok {
			assert.NotEqual(t, account.PasswordHash, s)
			assert.NotEqual(t, verification, s)
			assert.NotEqual(t, reset, s)
		}
	}
}

func TestSessionExpiryIsSevenDays(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	issuer := newTestIssuer(t).WithClock(func() time.Time { return issued })

	_, claims, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	exp, ok := claims.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, issued.Add(7*24*time.Hour).Unix(), exp.Unix())
}

func TestSessionAuthenticateExpired(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signer := accounts.NewTokenSigner(signerTestKey, nil)
	issuer := accounts.NewSessionIssuer(signer, accounts.DefaultSessionTTL).
		WithClock(func() time.Time { return issued })

	token, _, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	// just before expiry the token still authenticates
	issuer.WithClock(func() time.Time { return issued.Add(7*24*time.Hour - time.Second) })
	_, err = issuer.Authenticate(token)
	assert.NoError(t, err)

	// past expiry the signature still verifies but the session is rejected
	issuer.WithClock(func() time.Time { return issued.Add(7*24*time.Hour + time.Second) })
	_, err = issuer.Authenticate(token)
	assert.Error(t, err)
	assert.True(t, accounts.HasTextCode(err, accounts.TextCodeSessionExpired))
}

func TestSessionAuthenticateRoles(t *testing.T) {
	issuer := newTestIssuer(t)

	account := testAccount()
	account.Role = accounts.RoleAdmin

	token, _, err := issuer.Issue(account)
	require.NoError(t, err)

	_, err = issuer.Authenticate(token, "admin")
	assert.NoError(t, err)

	_, err = issuer.Authenticate(token, "admin", "owner")
	assert.NoError(t, err)

	_, err = issuer.Authenticate(token, "owner")
	assert.Error(t, err)
	assert.True(t, accounts.HasTextCode(err, accounts.TextCodeRoleMismatch))
}

func TestSessionAuthenticateTampered(t *testing.T) {
	issuer := newTestIssuer(t)

	token, _, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	_, err = issuer.Authenticate(token + "x")
	assert.Error(t, err)
}

func TestClaimsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		claims  accounts.Claims
		expired bool
	}{
		{
			name:    "Future exp",
			claims:  accounts.Claims{"exp": now.Add(time.Hour).Unix()},
			expired: false,
		},
		{
			name:    "Past exp",
			claims:  accounts.Claims{"exp": now.Add(-time.Hour).Unix()},
			expired: true,
		},
		{
			name:    "JSON decoded float exp",
			claims:  accounts.Claims{"exp": float64(now.Add(time.Hour).Unix())},
			expired: false,
		},
		{
			name:    "Missing exp counts as expired",
			claims:  accounts.Claims{},
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.claims.Expired(now))
		})
	}
}
