// Package accounts implements the account and credential lifecycle: signup,
// signin with brute-force lockout, email verification, password reset, and
// stateless HMAC-signed session tokens.
//
// Lifecycle:
//   - Accounts are created pending (verification token set) or active, and
//     move to active exactly once when their verification token is consumed.
//     A sliding lockout window (five failures, fifteen minutes since the most
//     recent one) layers on top of either state.
//   - Manager orchestrates the flows against a CredentialStore and a Mailer.
//     Both are narrow collaborator interfaces; a Bun-backed store and an SMTP
//     mailer ship with the package, but any implementation will do.
//
// Tokens:
//   - Session tokens are compact signed claims (HS256). The server keeps no
//     session record; TokenSigner verifies signatures and SessionIssuer
//     enforces expiry and role requirements.
//   - CSRF tokens are per-session random values held in a session Storage,
//     see middleware/csrf.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Manager to
//     describe signup, signin, verification, and reset events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package accounts
