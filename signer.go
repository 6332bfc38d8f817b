package accounts

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenSigner is a generic compact signed-claims codec: three dot-separated
// base64url segments, signature = HMAC-SHA256(key, header "." payload).
//
// Decode verifies the signature but does NOT enforce exp; expiry is the
// caller's responsibility (SessionIssuer checks it for session tokens).
type TokenSigner struct {
	signingKey []byte
	logger     Logger
}

// NewTokenSigner creates a signer bound to a single shared secret. Rotating
// the secret invalidates every previously issued token.
func NewTokenSigner(signingKey []byte, logger Logger) *TokenSigner {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenSigner{
		signingKey: signingKey,
		logger:     logger,
	}
}

// Encode signs the claims with HS256. Deterministic for identical claims;
// callers set any nonce or expiry field themselves.
func (ts *TokenSigner) Encode(claims jwt.MapClaims) (string, error) {
	if len(ts.signingKey) == 0 {
		return "", goerrors.New("signing key must not be empty", goerrors.CategoryInternal)
	}
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Decode splits and verifies the token. Wrong segment count, a tampered
// signature, or an unexpected algorithm all fail before the payload is
// deserialized. Expiry is deliberately not validated here.
func (ts *TokenSigner) Decode(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenSigner decode encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		return nil, goerrors.Wrap(err, ErrSignatureInvalid.Category, ErrSignatureInvalid.Message).
			WithTextCode(ErrSignatureInvalid.TextCode)
	}

	if !token.Valid {
		return nil, ErrSignatureInvalid
	}

	return claims, nil
}
