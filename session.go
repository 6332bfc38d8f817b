package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the session token lifetime (seven days).
const DefaultSessionTTL = 7 * 24 * time.Hour

// Claims is the key-value payload carried inside a signed session token.
type Claims map[string]any

func (c Claims) AccountID() string {
	s, _ := c["id"].(string)
	return s
}

func (c Claims) Email() string {
	s, _ := c["email"].(string)
	return s
}

func (c Claims) Role() string {
	s, _ := c["role"].(string)
	return s
}

// ExpiresAt returns the exp claim. JSON decoding yields float64, issuance
// yields int64; both are handled.
func (c Claims) ExpiresAt() (time.Time, bool) {
	switch v := c["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case int:
		return time.Unix(int64(v), 0), true
	default:
		return time.Time{}, false
	}
}

// Expired reports whether the claims are past their exp at the given time.
// Claims without exp count as expired.
func (c Claims) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	if !ok {
		return true
	}
	return now.After(exp)
}

// SessionIssuer builds and consumes session claims atop TokenSigner. The
// lifetime lives in the signed token itself; the server holds no session
// record.
type SessionIssuer struct {
	signer *TokenSigner
	ttl    time.Duration
	now    func() time.Time
	logger Logger
}

func NewSessionIssuer(signer *TokenSigner, ttl time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{
		signer: signer,
		ttl:    ttl,
		now:    time.Now,
		logger: defLogger{},
	}
}

func (si *SessionIssuer) WithLogger(logger Logger) *SessionIssuer {
	if logger != nil {
		si.logger = logger
	}
	return si
}

// WithClock injects a custom clock (useful for tests).
func (si *SessionIssuer) WithClock(clock func() time.Time) *SessionIssuer {
	if clock != nil {
		si.now = clock
	}
	return si
}

// Issue mints a session token for the account. Claims come from the
// account's view, so sensitive fields never reach the payload.
func (si *SessionIssuer) Issue(account *Account) (string, Claims, error) {
	claims := account.View().Claims()
	claims["exp"] = si.now().Add(si.ttl).Unix()

	token, err := si.signer.Encode(jwt.MapClaims(claims))
	if err != nil {
		return "", nil, err
	}

	return token, claims, nil
}

// Authenticate decodes and validates a session token. It fails on a bad
// signature, on expiry, and, when requiredRoles is non-empty, on a role not
// in the set.
func (si *SessionIssuer) Authenticate(token string, requiredRoles ...string) (Claims, error) {
	decoded, err := si.signer.Decode(token)
	if err != nil {
		si.logger.Debug("session token rejected: %v", err)
		return nil, err
	}

	claims := Claims(decoded)

	if claims.Expired(si.now()) {
		return nil, ErrSessionExpired
	}

	if len(requiredRoles) > 0 && !roleInSet(claims.Role(), requiredRoles) {
		return nil, ErrRoleMismatch
	}

	return claims, nil
}

func roleInSet(role string, set []string) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
