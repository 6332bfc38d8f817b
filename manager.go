package accounts

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// SignupInput carries the signup payload.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role,omitempty"`
	// RequireVerification creates the account pending, with a verification
	// token that must be consumed before signin succeeds.
	RequireVerification bool
	// DeterministicID derives the account id from the email instead of
	// minting a random one.
	DeterministicID bool
}

// SignupResult reports a created account. NotificationSent is false when the
// account was persisted but the verification mail could not be delivered;
// the account is never rolled back over a delivery failure.
type SignupResult struct {
	AccountID         uuid.UUID
	Pending           bool
	VerificationToken string
	NotificationSent  bool
}

// SigninResult carries the minted session token and its claims.
type SigninResult struct {
	Token  string
	Claims Claims
}

// ResetRequestResult reports an outstanding password-reset request.
type ResetRequestResult struct {
	ResetToken       string
	NotificationSent bool
}

// ExtraCheck is an ordered signin attribute assertion. Checks run in the
// caller-supplied order after credentials, lockout, and verification pass,
// short-circuiting on the first mismatch.
type ExtraCheck struct {
	Key   string
	Value any
}

// Manager orchestrates the account lifecycle against a CredentialStore and a
// Mailer. One logical execution per call, synchronous, no retries; a store
// failure surfaces immediately.
type Manager struct {
	store       CredentialStore
	mailer      Mailer
	hasher      PasswordHasher
	lockout     LockoutPolicy
	sessions    *SessionIssuer
	activity    ActivitySink
	logger      Logger
	now         func() time.Time
	phoneRegion string

	decoyOnce sync.Once
	decoy     string
}

// NewManager builds a Manager from config. The signing secret is injected
// here, never read from ambient state.
func NewManager(store CredentialStore, mailer Mailer, cfg *Config) *Manager {
	if cfg == nil {
		cfg = &Config{}
		cfg.LoadDefaults()
	}

	signer := NewTokenSigner([]byte(cfg.SigningKey), defLogger{})

	return &Manager{
		store:       store,
		mailer:      mailer,
		hasher:      BcryptHasher{Cost: cfg.BcryptCost},
		lockout:     LockoutPolicy{MaxAttempts: cfg.MaxFailedAttempts, Window: cfg.LockoutWindow},
		sessions:    NewSessionIssuer(signer, cfg.SessionTTL),
		activity:    noopActivitySink{},
		logger:      defLogger{},
		now:         time.Now,
		phoneRegion: cfg.PhoneRegion,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
		m.sessions.WithLogger(logger)
	}
	return m
}

// WithClock injects a custom clock for the manager and its session issuer.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.now = clock
		m.sessions.WithClock(clock)
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.activity = normalizeActivitySink(sink)
	return m
}

func (m *Manager) WithHasher(hasher PasswordHasher) *Manager {
	if hasher != nil {
		m.hasher = hasher
	}
	return m
}

func (m *Manager) WithLockoutPolicy(policy LockoutPolicy) *Manager {
	m.lockout = policy
	return m
}

func (m *Manager) WithSessionIssuer(issuer *SessionIssuer) *Manager {
	if issuer != nil {
		m.sessions = issuer
	}
	return m
}

// Sessions returns the session issuer used by this manager.
func (m *Manager) Sessions() *SessionIssuer {
	return m.sessions
}

// Signup creates an account. The existence check and the insert are a single
// atomic operation at the store (unique email index), so two concurrent
// signups for the same email cannot both succeed.
func (m *Manager) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingCredentials
	}

	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"fields": FormatValidationErrorToMap(err)})
	}

	phone := input.Phone
	if phone != "" {
		normalized, err := NormalizePhone(phone, m.phoneRegion)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	hash, err := m.hasher.Hash(input.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := m.now()
	account := &Account{
		Email:        input.Email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         input.Role,
		Verified:     !input.RequireVerification,
		CreatedAt:    &now,
	}
	account.EnsureRole()

	if input.DeterministicID {
		if id, err := hashid.NewUUID(input.Email); err == nil {
			account.ID = id
		}
	}

	if input.RequireVerification {
		token, err := NewVerificationToken()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification token")
		}
		account.VerificationToken = &token
	}

	created, err := m.store.InsertUnique(ctx, account)
	if err != nil {
		if IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, m.persistenceError(err, "failed to persist account")
	}

	result := &SignupResult{
		AccountID:        created.ID,
		Pending:          created.Pending(),
		NotificationSent: true,
	}

	if created.VerificationToken != nil {
		result.VerificationToken = *created.VerificationToken

		if err := m.mailer.SendVerification(ctx, created.Email, *created.VerificationToken); err != nil {
			result.NotificationSent = false
			m.logger.Warn("signup succeeded but verification mail failed: %v", err)
		}
	}

	m.emit(ctx, ActivityEventSignup, created.ID.String(), map[string]any{
		"email":   created.Email,
		"pending": result.Pending,
	})

	return result, nil
}

// Signin verifies credentials and mints a session token. An unknown email
// and a wrong password return the same error, and the unknown-email path
// burns a decoy hash comparison so the two cost the same.
func (m *Manager) Signin(ctx context.Context, email, password string, extraChecks ...ExtraCheck) (*SigninResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	account, err := m.store.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			m.hasher.Verify(password, m.decoyHash())
			m.emitFailure(ctx, email, "unknown account")
			return nil, ErrInvalidCredentials
		}
		return nil, m.persistenceError(err, "failed to retrieve account during signin")
	}

	now := m.now()

	if m.lockout.Locked(account, now) {
		m.emitFailure(ctx, email, "locked")
		return nil, ErrAccountLocked
	}

	if !m.hasher.Verify(password, account.PasswordHash) {
		if err := m.lockout.RecordFailure(ctx, m.store, account.ID, now); err != nil {
			return nil, m.persistenceError(err, "failed to record signin failure")
		}
		m.emitFailure(ctx, email, "bad password")
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		m.emitFailure(ctx, email, "unverified")
		return nil, ErrAccountUnverified
	}

	attrs := account.View().Claims()
	for _, check := range extraChecks {
		got, ok := attrs[check.Key]
		if !ok || got != check.Value {
			m.emitFailure(ctx, email, "extra check: "+check.Key)
			return nil, ExtraCheckError(check.Key)
		}
	}

	if err := m.lockout.Reset(ctx, m.store, account.ID); err != nil {
		return nil, m.persistenceError(err, "failed to reset signin failures")
	}

	token, claims, err := m.sessions.Issue(account)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("issued session claims: %s", print.MaybePrettyJSON(claims))
	m.emit(ctx, ActivityEventSigninSuccess, account.ID.String(), map[string]any{"email": email})

	return &SigninResult{Token: token, Claims: claims}, nil
}

// VerifyEmail consumes a verification token: the account becomes verified
// and the token is cleared, exactly once. Replaying the token fails with a
// not-found outcome.
func (m *Manager) VerifyEmail(ctx context.Context, token string) (*AccountView, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	account, err := m.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, m.persistenceError(err, "failed to look up verification token")
	}

	err = m.store.Update(ctx, account.ID, map[string]any{
		"verified":           true,
		"verification_token": nil,
	})
	if err != nil {
		return nil, m.persistenceError(err, "failed to mark account verified")
	}

	account.Verified = true
	account.VerificationToken = nil

	m.emit(ctx, ActivityEventEmailVerified, account.ID.String(), nil)

	view := account.View()
	return &view, nil
}

// RequestPasswordReset mints a reset token and stores it, overwriting any
// prior outstanding token. A token stays valid until superseded by a newer
// request; there is no expiry and no single-use consumption.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (*ResetRequestResult, error) {
	account, err := m.store.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, m.persistenceError(err, "failed to retrieve account for password reset")
	}

	token, err := NewResetToken()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	if err := m.store.Update(ctx, account.ID, map[string]any{"reset_token": token}); err != nil {
		return nil, m.persistenceError(err, "failed to persist reset token")
	}

	result := &ResetRequestResult{ResetToken: token, NotificationSent: true}

	if err := m.mailer.SendReset(ctx, account.Email, token); err != nil {
		result.NotificationSent = false
		m.logger.Warn("reset token stored but mail failed: %v", err)
	}

	m.emit(ctx, ActivityEventResetRequested, account.ID.String(), map[string]any{"email": email})

	return result, nil
}

// ResetPassword sets a new password for the account holding the reset token.
// The token is left in place afterwards; only the next reset request
// replaces it.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrTokenNotFound
	}

	account, err := m.store.FindByResetToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrTokenNotFound
		}
		return m.persistenceError(err, "failed to look up reset token")
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid new password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := m.store.Update(ctx, account.ID, map[string]any{"password_hash": hash}); err != nil {
		return m.persistenceError(err, "failed to persist new password")
	}

	m.emit(ctx, ActivityEventPasswordChange, account.ID.String(), nil)

	return nil
}

// UpdatePassword changes the password after verifying the current one. On a
// failed verification the stored hash is untouched.
func (m *Manager) UpdatePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	account, err := m.store.FindByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return m.persistenceError(err, "failed to retrieve account for password update")
	}

	if !m.hasher.Verify(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid new password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	if err := m.store.Update(ctx, id, map[string]any{"password_hash": hash}); err != nil {
		return m.persistenceError(err, "failed to persist new password")
	}

	m.emit(ctx, ActivityEventPasswordChange, id.String(), nil)

	return nil
}

// UpdateAccount applies only the fields named by the allow list. When no
// allow list is given, DefaultUpdateAllowList applies.
func (m *Manager) UpdateAccount(ctx context.Context, id uuid.UUID, fields map[string]any, allowList ...string) error {
	if len(allowList) == 0 {
		allowList = DefaultUpdateAllowList
	}

	filtered := map[string]any{}
	for _, key := range allowList {
		if val, ok := fields[key]; ok {
			filtered[key] = val
		}
	}

	if len(filtered) == 0 {
		return ErrNoUpdatableFields
	}

	if raw, ok := filtered["role"]; ok {
		var role string
		switch v := raw.(type) {
		case string:
			role = v
		case Role:
			role = string(v)
		}
		if _, valid := ParseRole(role); !valid {
			return goerrors.New("unknown or invalid role", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"role": raw})
		}
	}

	if err := m.store.Update(ctx, id, filtered); err != nil {
		if goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return m.persistenceError(err, "failed to update account")
	}

	return nil
}

// decoyHash lazily builds a digest used for timing parity on unknown emails.
func (m *Manager) decoyHash() string {
	m.decoyOnce.Do(func() {
		if digest, err := m.hasher.Hash(uuid.NewString()); err == nil {
			m.decoy = digest
		}
	})
	return m.decoy
}

func (m *Manager) persistenceError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func (m *Manager) emit(ctx context.Context, eventType ActivityEventType, accountID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		AccountID:  accountID,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(m.activity).Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func (m *Manager) emitFailure(ctx context.Context, email, reason string) {
	m.emit(ctx, ActivityEventSigninFailure, "", map[string]any{
		"email":  email,
		"reason": reason,
	})
}
