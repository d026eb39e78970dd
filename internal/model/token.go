package model

import "time"

// TokenPurpose selects which side-channel token table an opaque token
// lives in. The two purposes are stored separately so a verification
// token can never be replayed against the reset flow or vice versa.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// TTLs are fixed per purpose: verification links stay valid for a day,
// reset links for an hour.
const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
)

// SideChannelToken models a row in `email_verification_tokens` or
// `password_reset_tokens`. Only reset rows carry the Used flag; a
// verification row is deleted outright on redemption.
type SideChannelToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
