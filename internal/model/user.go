package model

import "time"

// Roles stored in users.role. Tokens carry the same values.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User mirrors the `users` table. The password hash never leaves the
// repository/handler layer; response DTOs are defined separately in the
// handler package.
//
// Fields:
//
//	ID                – primary key identifier of the user.
//	Name              – display name.
//	Email             – unique, lowercased email address.
//	PasswordHash      – bcrypt hashed password.
//	Role              – "user" or "admin".
//	Verified          – whether the email address has been confirmed.
//	PreferredLanguage – UI language ("en" or "sw").
//	SubscriptionTier  – current plan name (e.g. "free", "premium").
//	LastLogin         – timestamp of the most recent successful login.
type User struct {
	ID                uint64     // users.id
	Name              string     // users.name
	Email             string     // users.email
	PasswordHash      string     // users.password_hash
	Role              string     // users.role
	Verified          bool       // users.verified
	PreferredLanguage string     // users.preferred_language
	SubscriptionTier  string     // users.subscription_tier
	LastLogin         *time.Time // users.last_login (nullable)
	CreatedAt         time.Time  // users.created_at
	UpdatedAt         time.Time  // users.updated_at
}

// Subscription is the slice of a user's subscription row that /auth/me
// reports. Subscription management itself lives outside this service.
type Subscription struct {
	Plan      string     `json:"plan"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Principal is the authenticated identity derived from verified access
// token claims. It is rebuilt on every request and never persisted.
type Principal struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAnonymous reports whether the principal belongs to a guest request
// admitted through the optional-auth path.
func (p Principal) IsAnonymous() bool { return p.UserID == 0 }
