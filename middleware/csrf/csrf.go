// Package csrf provides session-keyed CSRF protection. A token is minted per
// session, handed to forms and headers, validated in constant time on unsafe
// methods, and rotated only after a validated submission succeeds. Reads and
// failed submissions keep the current token so multi-tab flows stay valid.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch = errors.New("CSRF token mismatch")
	ErrTokenMissing  = errors.New("CSRF token missing")
	ErrNoSession     = errors.New("CSRF session key missing")
)

// DefaultTokenLength is the byte length of generated tokens; tokens render
// as twice as many hex characters.
const DefaultTokenLength = 32

// DefaultContextKey is the default key for storing CSRF tokens in context
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// TokenLength defines the length of the generated token
	TokenLength int

	// ContextKey defines the key for storing the token in context
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// TokenLookup defines where to look for the token
	// Format: "form:_token,header:X-CSRF-Token"
	TokenLookup string

	// Storage defines how tokens are stored and retrieved.
	// If nil, an in-memory store is used.
	Storage Storage

	// ErrorHandler defines the error handler
	ErrorHandler router.ErrorHandler

	// SuccessHandler defines the success handler
	SuccessHandler router.HandlerFunc

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long stored tokens are valid
	Expiration time.Duration
}

// Storage interface for storing and retrieving CSRF tokens
type Storage interface {
	Get(key string) (string, error)
	Set(key string, value string, expiration time.Duration) error
	Delete(key string) error
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) (string, error)

// Guard owns the token lifecycle for one storage backend.
type Guard struct {
	storage     Storage
	tokenLength int
	expiration  time.Duration
}

// NewGuard builds a Guard. A nil storage gets an in-memory store.
func NewGuard(storage Storage, tokenLength int, expiration time.Duration) *Guard {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if tokenLength <= 0 {
		tokenLength = DefaultTokenLength
	}
	return &Guard{
		storage:     storage,
		tokenLength: tokenLength,
		expiration:  expiration,
	}
}

// Issue returns the session's current token, minting one if none exists.
// Repeated calls for the same session return the same token.
func (g *Guard) Issue(sessionKey string) (string, error) {
	if sessionKey == "" {
		return "", ErrNoSession
	}

	if token, err := g.storage.Get(sessionKey); err == nil && token != "" {
		return token, nil
	}

	token, err := generateToken(g.tokenLength)
	if err != nil {
		return "", err
	}

	if err := g.storage.Set(sessionKey, token, g.expiration); err != nil {
		return "", err
	}

	return token, nil
}

// Validate compares a submitted token against the session's stored token in
// constant time. The stored token is not consumed.
func (g *Guard) Validate(sessionKey, submitted string) error {
	if submitted == "" {
		return ErrTokenMissing
	}

	expected, err := g.storage.Get(sessionKey)
	if err != nil || expected == "" {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// Rotate replaces the session's token with a fresh one. Called after a
// validated submission has been fully handled, never on failure.
func (g *Guard) Rotate(sessionKey string) (string, error) {
	token, err := generateToken(g.tokenLength)
	if err != nil {
		return "", err
	}

	if err := g.storage.Set(sessionKey, token, g.expiration); err != nil {
		return "", err
	}

	return token, nil
}

// New creates a new CSRF middleware
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)
		guard := NewGuard(cfg.Storage, cfg.TokenLength, cfg.Expiration)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			sessionKey := getSessionKey(ctx)

			token, err := guard.Issue(sessionKey)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			// safe methods don't require validation
			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return cfg.SuccessHandler(ctx)
			}

			received, err := extractToken(ctx, cfg)
			if err == nil && received == "" {
				err = ErrTokenMissing
			}
			if err == nil {
				err = guard.Validate(sessionKey, received)
			}
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.SuccessHandler(ctx); err != nil {
				return err
			}

			// the token only rotates once the submission was handled, so a
			// failed handler leaves the form token usable for a retry
			if fresh, err := guard.Rotate(sessionKey); err == nil {
				ctx.Locals(cfg.ContextKey, fresh)
			}

			return nil
		}
	}
}

// generateToken generates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func extractToken(ctx router.Context, cfg Config) (string, error) {
	extractors := getExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName)

	for _, extractor := range extractors {
		token, err := extractor(ctx)
		if token != "" && err == nil {
			return token, nil
		}
	}

	return "", nil
}

// getSessionKey generates a session key for token storage
func getSessionKey(ctx router.Context) string {
	if sessionID := ctx.Locals("session_id"); sessionID != nil {
		if id, ok := sessionID.(string); ok && id != "" {
			return "csrf_" + id
		}
	}

	if accountID := ctx.Locals("account_id"); accountID != nil {
		if id, ok := accountID.(string); ok && id != "" {
			return "csrf_account_" + id
		}
	}

	// fallback to IP based key, less secure but OK
	return "csrf_ip_" + ctx.IP()
}

// getExtractors returns token extractors based on configuration
func getExtractors(tokenLookup, formField, header string) []TokenExtractor {
	var extractors []TokenExtractor

	if tokenLookup == "" {
		extractors = append(extractors,
			extractorFromForm(formField),
			extractorFromHeader(header),
		)
		return extractors
	}

	// Parse tokenLookup: "form:_token,header:X-CSRF-Token"
	parts := strings.Split(tokenLookup, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "form:") {
			field := strings.TrimPrefix(part, "form:")
			extractors = append(extractors, extractorFromForm(field))
		} else if strings.HasPrefix(part, "header:") {
			headerName := strings.TrimPrefix(part, "header:")
			extractors = append(extractors, extractorFromHeader(headerName))
		}
	}

	return extractors
}

// extractorFromForm extracts token from form data
func extractorFromForm(fieldName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.FormValue(fieldName), nil
	}
}

// extractorFromHeader extracts token from request header
func extractorFromHeader(headerName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.GetString(headerName, ""), nil
	}
}

// configDefault returns a default config
func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler(cfg)
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	return cfg
}

func defaultErrorHandler(cfg Config) router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		switch err {
		case ErrTokenMissing:
			return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
		case ErrTokenMismatch:
			return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
		default:
			return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
		}
	}
}
