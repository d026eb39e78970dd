package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/zeawatch/backend/internal/model"
	"github.com/zeawatch/backend/internal/utils"
)

// UserRepo is the credential store: durable record of identity, password
// hash, role and verification/subscription state.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,verified,preferred_language,subscription_tier,last_login,created_at,updated_at"

// Create inserts a user with a freshly hashed password and returns its ID.
// New accounts start unverified with role "user" on the free tier.
func (r *UserRepo) Create(ctx context.Context, name, email, password, lang string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, verified, preferred_language, subscription_tier) VALUES (?,?,?,?,?,?,?)",
		name, email, hash, model.RoleUser, false, lang, "free")
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EmailExists reports whether a user row already claims the email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE email=? LIMIT 1", email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByEmail fetches a user by normalized email, including the password
// hash for the login flow.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetVerified flips the verified flag after a successful email
// confirmation.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verified=1, updated_at=NOW() WHERE id=?", id)
	return err
}

// UpdatePassword replaces the stored hash during a password reset.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, id)
	return err
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login=NOW() WHERE id=?", id)
	return err
}

// GetSubscription returns the user's active subscription row, or nil when
// the user has none. Subscription lifecycle is owned elsewhere; /auth/me
// only reports it.
func (r *UserRepo) GetSubscription(ctx context.Context, id uint64) (*model.Subscription, error) {
	var (
		sub model.Subscription
		exp sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT plan, status, expires_at FROM subscriptions WHERE user_id=? AND status='active' ORDER BY created_at DESC LIMIT 1",
		id).Scan(&sub.Plan, &sub.Status, &exp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if exp.Valid {
		sub.ExpiresAt = &exp.Time
	}
	return &sub, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Verified,
		&u.PreferredLanguage, &u.SubscriptionTier, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}
