package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role tag.
type Role string

const (
	// RoleUser is the default role assigned at signup.
	RoleUser Role = "user"
	// RoleAdmin is an elevated role.
	RoleAdmin Role = "admin"
	// RoleOwner is the highest role.
	RoleOwner Role = "owner"
)

// Account is the persisted account model.
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone             string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	Role              Role       `bun:"role,notnull" json:"role,omitempty"`
	Verified          bool       `bun:"verified" json:"verified"`
	VerificationToken *string    `bun:"verification_token,nullzero" json:"-"`
	ResetToken        *string    `bun:"reset_token,nullzero" json:"-"`
	FailedAttempts    int        `bun:"failed_attempts" json:"-"`
	LastFailedAttempt *time.Time `bun:"last_failed_attempt,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Pending reports whether the account still awaits email verification. The
// verification token is the discriminator: it is present exactly while a
// verification is outstanding.
func (a *Account) Pending() bool {
	return !a.Verified && a.VerificationToken != nil
}

// EnsureRole fills in the default role.
func (a *Account) EnsureRole() {
	if a.Role == "" {
		a.Role = RoleUser
	}
}

// View returns the safe projection of the account. Sensitive fields
// (password hash, verification and reset tokens, failure counters) do not
// exist on the view type, so they cannot leak into claims or responses.
func (a *Account) View() AccountView {
	return AccountView{
		ID:        a.ID.String(),
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.Role,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}

// AccountView is the sensitive-field-free projection of an Account.
type AccountView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Role      Role       `json:"role"`
	Verified  bool       `json:"verified"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Claims maps the view into a session claims payload. Callers add exp.
func (v AccountView) Claims() Claims {
	c := Claims{
		"id":       v.ID,
		"email":    v.Email,
		"role":     string(v.Role),
		"verified": v.Verified,
	}
	if v.Phone != "" {
		c["phone"] = v.Phone
	}
	if v.CreatedAt != nil {
		c["created_at"] = v.CreatedAt.UTC().Format(time.RFC3339)
	}
	return c
}

// DefaultUpdateAllowList are the account fields updatable when the caller
// does not supply an explicit allow list.
var DefaultUpdateAllowList = []string{"email", "role", "verified"}
