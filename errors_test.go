package accounts_test

import (
	"errors"
	"fmt"
	"testing"

	accounts "github.com/calderan/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestHasTextCode(t *testing.T) {
	assert.True(t, accounts.HasTextCode(accounts.ErrAccountLocked, accounts.TextCodeAccountLocked))
	assert.False(t, accounts.HasTextCode(accounts.ErrAccountLocked, accounts.TextCodeEmailTaken))
	assert.False(t, accounts.HasTextCode(errors.New("plain"), accounts.TextCodeEmailTaken))
	assert.False(t, accounts.HasTextCode(nil, accounts.TextCodeEmailTaken))

	// wrapped rich errors still expose their code
	wrapped := fmt.Errorf("outer: %w", accounts.ErrSessionExpired)
	assert.True(t, accounts.HasTextCode(wrapped, accounts.TextCodeSessionExpired))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, accounts.IsConflict(accounts.ErrEmailTaken))
	assert.False(t, accounts.IsConflict(accounts.ErrInvalidCredentials))
	assert.False(t, accounts.IsConflict(errors.New("plain")))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, accounts.IsAuthFailure(accounts.ErrInvalidCredentials))
	assert.True(t, accounts.IsAuthFailure(accounts.ErrAccountLocked))
	assert.True(t, accounts.IsAuthFailure(accounts.ErrAccountUnverified))
	assert.False(t, accounts.IsAuthFailure(accounts.ErrEmailTaken))
}

func TestExtraCheckError(t *testing.T) {
	err := accounts.ExtraCheckError("phone")
	assert.Contains(t, err.Error(), "phone")
	assert.True(t, accounts.HasTextCode(err, accounts.TextCodeExtraCheckFailed))
	assert.True(t, accounts.IsAuthFailure(err))
}
