package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// OpaqueTokenBytes is the entropy of verification and reset tokens. Hex
// encoding doubles it on the wire: 64 characters.
const OpaqueTokenBytes = 32

// NewVerificationToken mints the token mailed out at signup. It is valid
// until consumed; consumption clears it exactly once.
func NewVerificationToken() (string, error) {
	return randomHex(OpaqueTokenBytes)
}

// NewResetToken mints a password-reset token. Each reset request overwrites
// the previous token, which is the only way a token stops being valid.
func NewResetToken() (string, error) {
	return randomHex(OpaqueTokenBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
