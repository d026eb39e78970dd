package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeawatch/backend/internal/model"
)

// TokenRepo is the side-channel token store: single-use, time-boxed
// proof-of-email-access tokens. Verification and reset tokens live in
// separate tables, which makes purpose isolation structural.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store persists an opaque token unused with the purpose-specific TTL and
// returns the expiry. Multiple outstanding tokens per user are allowed;
// each stays independently redeemable until used or expired.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, token string, purpose model.TokenPurpose) (time.Time, error) {
	var (
		q   string
		exp time.Time
	)
	switch purpose {
	case model.PurposeEmailVerification:
		q = "INSERT INTO email_verification_tokens (user_id, token, expires_at) VALUES (?,?,?)"
		exp = time.Now().UTC().Add(model.EmailVerificationTTL)
	case model.PurposePasswordReset:
		q = "INSERT INTO password_reset_tokens (user_id, token, used, expires_at) VALUES (?,?,0,?)"
		exp = time.Now().UTC().Add(model.PasswordResetTTL)
	default:
		return time.Time{}, ErrTokenInvalid
	}
	if _, err := r.DB.ExecContext(ctx, q, userID, token, exp); err != nil {
		return time.Time{}, err
	}
	return exp, nil
}

// Redeem consumes a token and returns the owning user id. Redemption is
// atomic: the consuming statement carries the full validity condition, so
// under concurrent attempts on the same token exactly one caller wins and
// the rest get ErrTokenInvalid. Verification tokens are deleted outright;
// reset tokens are flagged used to keep a forensic trail. Every failure
// cause (missing, expired, used, wrong purpose) maps to ErrTokenInvalid.
func (r *TokenRepo) Redeem(ctx context.Context, token string, purpose model.TokenPurpose) (uint64, error) {
	switch purpose {
	case model.PurposeEmailVerification:
		return r.redeem(ctx, token,
			"SELECT user_id FROM email_verification_tokens WHERE token=? AND expires_at > UTC_TIMESTAMP() LIMIT 1",
			"DELETE FROM email_verification_tokens WHERE token=? AND expires_at > UTC_TIMESTAMP()")
	case model.PurposePasswordReset:
		return r.redeem(ctx, token,
			"SELECT user_id FROM password_reset_tokens WHERE token=? AND used=0 AND expires_at > UTC_TIMESTAMP() LIMIT 1",
			"UPDATE password_reset_tokens SET used=1 WHERE token=? AND used=0 AND expires_at > UTC_TIMESTAMP()")
	default:
		return 0, ErrTokenInvalid
	}
}

// redeem reads the owner first, then runs the conditional consuming
// statement. Only the caller whose statement reports one affected row has
// actually consumed the token; a racer that read the owner but affected
// zero rows lost and fails.
func (r *TokenRepo) redeem(ctx context.Context, token, selectQ, consumeQ string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx, selectQ, token).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, consumeQ, token)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}
