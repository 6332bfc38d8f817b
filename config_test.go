package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/calderan/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestConfigLoadDefaults(t *testing.T) {
	cfg := &accounts.Config{}
	cfg.LoadDefaults()

	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, "15m", cfg.LockoutWindow)
	assert.Equal(t, 14, cfg.BcryptCost)
	assert.NotEmpty(t, cfg.SigningKey)
	assert.NotEmpty(t, cfg.BaseURL)
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("ACCOUNTS_SIGNING_KEY", "env-secret")
	t.Setenv("ACCOUNTS_SESSION_TTL", "48h")
	t.Setenv("ACCOUNTS_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("ACCOUNTS_LOCKOUT_WINDOW", "30m")
	t.Setenv("ACCOUNTS_SMTP_PORT", "2525")

	cfg := accounts.LoadConfig()

	assert.Equal(t, "env-secret", cfg.SigningKey)
	assert.Equal(t, 48*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.MaxFailedAttempts)
	assert.Equal(t, "30m", cfg.LockoutWindow)
	assert.Equal(t, 2525, cfg.SMTP.Port)

	// untouched values keep their defaults
	assert.Equal(t, 14, cfg.BcryptCost)
}

func TestLoadConfigIgnoresBadValues(t *testing.T) {
	t.Setenv("ACCOUNTS_SESSION_TTL", "not-a-duration")
	t.Setenv("ACCOUNTS_MAX_FAILED_ATTEMPTS", "many")

	cfg := accounts.LoadConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
}
