package accounts

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SMTPConfig holds the mail relay settings used by the SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Config holds runtime settings for the account lifecycle.
//
// Fields:
//   - SigningKey: HMAC secret for signing session tokens (HS256). Do not
//     ship the development default.
//   - SessionTTL: session token lifetime.
//   - MaxFailedAttempts / LockoutWindow: brute-force lockout tuning. The
//     window is a duration expression such as "15m".
//   - BcryptCost: work factor for password digests.
//   - PhoneRegion: default region for parsing national phone numbers.
//   - BaseURL: public base used to build verification and reset links.
type Config struct {
	SigningKey        string
	SessionTTL        time.Duration
	MaxFailedAttempts int
	LockoutWindow     string
	BcryptCost        int
	PhoneRegion       string
	BaseURL           string
	SMTP              SMTPConfig
}

// LoadDefaults populates Config with development defaults.
// NOTE: the signing key default is insecure and must be overridden.
func (c *Config) LoadDefaults() {
	c.SigningKey = "secret"
	c.SessionTTL = DefaultSessionTTL
	c.MaxFailedAttempts = MaxFailedAttempts
	c.LockoutWindow = LockoutWindow
	c.BcryptCost = DefaultBcryptCost
	c.PhoneRegion = DefaultPhoneRegion
	c.BaseURL = "http://localhost:8080"
	c.SMTP = SMTPConfig{
		Host: "localhost",
		Port: 1025,
		From: "accounts@localhost",
	}
}

// LoadConfig builds a Config by applying defaults and then overlaying
// ACCOUNTS_* environment variables. Dotenv files passed in are loaded first
// without clobbering variables already present in the environment.
func LoadConfig(files ...string) *Config {
	if len(files) > 0 {
		_ = godotenv.Load(files...)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	cfg.SigningKey = envOrDefault("ACCOUNTS_SIGNING_KEY", cfg.SigningKey)
	cfg.SessionTTL = envDurationOrDefault("ACCOUNTS_SESSION_TTL", cfg.SessionTTL)
	cfg.MaxFailedAttempts = envIntOrDefault("ACCOUNTS_MAX_FAILED_ATTEMPTS", cfg.MaxFailedAttempts)
	cfg.LockoutWindow = envOrDefault("ACCOUNTS_LOCKOUT_WINDOW", cfg.LockoutWindow)
	cfg.BcryptCost = envIntOrDefault("ACCOUNTS_BCRYPT_COST", cfg.BcryptCost)
	cfg.PhoneRegion = envOrDefault("ACCOUNTS_PHONE_REGION", cfg.PhoneRegion)
	cfg.BaseURL = envOrDefault("ACCOUNTS_BASE_URL", cfg.BaseURL)
	cfg.SMTP.Host = envOrDefault("ACCOUNTS_SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = envIntOrDefault("ACCOUNTS_SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = envOrDefault("ACCOUNTS_SMTP_USER", cfg.SMTP.Username)
	cfg.SMTP.Password = envOrDefault("ACCOUNTS_SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = envOrDefault("ACCOUNTS_MAIL_FROM", cfg.SMTP.From)

	return cfg
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDurationOrDefault(name string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
