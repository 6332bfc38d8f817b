package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingCredentials = "MISSING_CREDENTIALS"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeAccountUnverified  = "ACCOUNT_UNVERIFIED"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	TextCodeSignatureInvalid   = "SIGNATURE_INVALID"
	TextCodeSessionExpired     = "SESSION_EXPIRED"
	TextCodeRoleMismatch       = "ROLE_MISMATCH"
	TextCodeNoUpdatableFields  = "NO_UPDATABLE_FIELDS"
	TextCodeExtraCheckFailed   = "EXTRA_CHECK_FAILED"
)

// ErrMissingCredentials is returned when email or password are absent.
var ErrMissingCredentials = goerrors.New("email and password are required", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when an account with the same email exists.
var ErrEmailTaken = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials covers both unknown accounts and wrong passwords so
// callers cannot tell the two apart.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while the lockout window is open.
var ErrAccountLocked = goerrors.New("account locked, please try again later", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeForbidden)

// ErrAccountUnverified is returned when the email has not been verified yet.
var ErrAccountUnverified = goerrors.New("please verify your email first", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountUnverified).
	WithCode(goerrors.CodeForbidden)

var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenNotFound is returned when no account holds the presented
// verification or reset token.
var ErrTokenNotFound = goerrors.New("invalid or unknown token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSignatureInvalid is returned for malformed or tampered signed tokens.
// The payload is never parsed when the signature does not verify.
var ErrSignatureInvalid = goerrors.New("token signature invalid or malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeSignatureInvalid).
	WithCode(goerrors.CodeUnauthorized)

var ErrSessionExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleMismatch is returned when a session does not carry a required role.
var ErrRoleMismatch = goerrors.New("session role not permitted", goerrors.CategoryAuth).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(goerrors.CodeForbidden)

// ErrNoUpdatableFields is returned when an account update carries no field
// present in the allow list.
var ErrNoUpdatableFields = goerrors.New("no valid fields to update", goerrors.CategoryValidation).
	WithTextCode(TextCodeNoUpdatableFields).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the hasher-level mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match stored digest", goerrors.CategoryAuth).
	WithTextCode("MISMATCHED_HASH_AND_PASSWORD").
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password input to the hasher.
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ExtraCheckError builds the auth failure for a signin extra check, keyed by
// the attribute that failed.
func ExtraCheckError(key string) *goerrors.Error {
	return goerrors.New("account "+key+" verification failed", goerrors.CategoryAuth).
		WithTextCode(TextCodeExtraCheckFailed).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{"check": key})
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsConflict reports whether err is a duplicate unique key outcome.
func IsConflict(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryConflict
}

// IsAuthFailure reports whether err is an expected authentication outcome.
func IsAuthFailure(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}
