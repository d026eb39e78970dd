package handler

import (
	"context"
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/zeawatch/backend/internal/config"
	"github.com/zeawatch/backend/internal/email"
	"github.com/zeawatch/backend/internal/middleware"
	"github.com/zeawatch/backend/internal/model"
	"github.com/zeawatch/backend/internal/queue"
	"github.com/zeawatch/backend/internal/repository"
	queue_publisher "github.com/zeawatch/backend/internal/service"
	"github.com/zeawatch/backend/internal/utils"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token.
// The access token never touches a cookie; clients hold it in memory and
// attach it as a bearer header.
const refreshCookieName = "refresh_token"

var emailRx = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuditPublisher sends one audit event; swapped out in tests.
type AuditPublisher func(ctx context.Context, ev queue.AuditEvent) error

// AuthHandler bundles dependencies for the auth endpoints: the credential
// store, the side-channel token store, mail delivery and the audit
// publisher.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Mail    *email.Sender
	Publish AuditPublisher
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, m *email.Sender) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Mail: m, Publish: queue_publisher.PublishAuditEvent}
}

// ----- DTOs -----

type registerReq struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferredLanguage"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type userPart struct {
	ID                uint64              `json:"id"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	Role              string              `json:"role"`
	Verified          bool                `json:"verified"`
	PreferredLanguage string              `json:"preferred_language"`
	SubscriptionTier  string              `json:"subscription_tier"`
	Subscription      *model.Subscription `json:"subscription,omitempty"`
}

func errJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"code": code, "message": msg})
}

// Register creates an account, stores a 24h verification token and emails
// the confirmation link. No tokens are issued here; the client logs in
// afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	name := strings.TrimSpace(req.Name)
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || addr == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name, email, and password are required")
	}
	if !emailRx.MatchString(addr) {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid email format")
	}
	if err := utils.ValidatePasswordStrength(req.Password); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}
	lang := req.PreferredLanguage
	if lang != "en" && lang != "sw" {
		lang = "en"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exists, err := h.Users.EmailExists(ctx, addr)
	if err != nil {
		log.Error().Err(err).Msg("register: email lookup failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
	}
	if exists {
		return errJSON(c, http.StatusConflict, "USER_EXISTS", "Email already registered")
	}

	uid, err := h.Users.Create(ctx, name, addr, req.Password, lang, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists { // lost the race to a concurrent signup
			return errJSON(c, http.StatusConflict, "USER_EXISTS", "Email already registered")
		}
		log.Error().Err(err).Msg("register: create user failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
	}

	// Verification is out-of-band: persist the token, then send the link
	// without blocking the response. A failed send leaves the token
	// redeemable by a later resend.
	if token, err := utils.NewOpaqueToken(); err == nil {
		if _, err := h.Tokens.Store(ctx, uid, token, model.PurposeEmailVerification); err != nil {
			log.Error().Err(err).Uint64("user_id", uid).Msg("register: store verification token failed")
		} else {
			go h.sendMail(func(ctx context.Context) error {
				return h.Mail.SendVerification(ctx, addr, name, token)
			}, "verification")
		}
	} else {
		log.Error().Err(err).Msg("register: token generation failed")
	}

	h.audit(c, &uid, "user_registered", nil)

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration successful. Please check your email to verify your account.",
		"user": echo.Map{
			"id":       uid,
			"name":     name,
			"email":    addr,
			"verified": false,
		},
	})
}

// Login verifies credentials and issues a fresh access+refresh pair. The
// failure path is identical for unknown email and wrong password so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, addr)
	if err != nil {
		if err == sql.ErrNoRows {
			return errJSON(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		}
		log.Error().Err(err).Msg("login: user lookup failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.audit(c, &u.ID, "login_failed", map[string]any{"reason": "invalid_password"})
		return errJSON(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		log.Error().Err(err).Msg("login: issue access token failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		log.Error().Err(err).Msg("login: issue refresh token failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
	}

	if err := h.Users.UpdateLastLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("login: update last_login failed")
	}
	h.audit(c, &u.ID, "login_success", nil)

	h.setRefreshCookie(c, refresh.Token)
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Login successful",
		"access_token": access.Token,
		"user": userPart{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			Role:              u.Role,
			Verified:          u.Verified,
			PreferredLanguage: u.PreferredLanguage,
			SubscriptionTier:  u.SubscriptionTier,
		},
	})
}

// Refresh rotates the session: it verifies the presented refresh token,
// re-fetches the user to catch accounts deleted since issuance, and
// returns a new access+refresh pair. The superseded refresh token is not
// tracked server-side; clients must store only the new one.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.refreshTokenFromRequest(c)
	if raw == "" {
		return errJSON(c, http.StatusUnauthorized, "NO_TOKEN", "Refresh token required")
	}
	claims, err := utils.VerifyToken(h.Cfg.JWTSecret, raw, utils.TokenTypeRefresh)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired refresh token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errJSON(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		}
		log.Error().Err(err).Msg("refresh: user lookup failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		log.Error().Err(err).Msg("refresh: issue access token failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh token")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		log.Error().Err(err).Msg("refresh: issue refresh token failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh token")
	}

	h.setRefreshCookie(c, refresh.Token)
	return c.JSON(http.StatusOK, echo.Map{"access_token": access.Token})
}

// Forgot requests a password reset. The response is the same 200 whether
// or not the email exists; only the owner of a real account receives a
// token.
func (h *AuthHandler) Forgot(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "Email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, addr)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Msg("forgot: user lookup failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process request")
	}
	if err == nil {
		token, err := utils.NewOpaqueToken()
		if err != nil {
			log.Error().Err(err).Msg("forgot: token generation failed")
			return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process request")
		}
		if _, err := h.Tokens.Store(ctx, u.ID, token, model.PurposePasswordReset); err != nil {
			log.Error().Err(err).Msg("forgot: store reset token failed")
			return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process request")
		}
		go h.sendMail(func(ctx context.Context) error {
			return h.Mail.SendPasswordReset(ctx, u.Email, u.Name, token)
		}, "password reset")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "If the email exists, a password reset link has been sent",
	})
}

// Reset redeems a reset token and replaces the password. Password policy
// is checked before the token is consumed, so a rejected password leaves
// the token redeemable. Redemption itself is single-use and atomic.
func (h *AuthHandler) Reset(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
	}
	if req.Token == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", "Token and password are required")
	}
	if err := utils.ValidatePasswordStrength(req.Password); err != nil {
		return errJSON(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.Redeem(ctx, req.Token, model.PurposePasswordReset)
	if err != nil {
		if err == repository.ErrTokenInvalid {
			return errJSON(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired reset token")
		}
		log.Error().Err(err).Msg("reset: redeem failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset password")
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("reset: update password failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset password")
	}

	h.audit(c, &uid, "password_reset", nil)
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful"})
}

const verifiedHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Email Verified - ZeaWatch</title>
    <style>
        body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
        .success { color: green; font-size: 24px; }
    </style>
</head>
<body>
    <div class="success">Email verified successfully!</div>
    <p>You can now log in to your account.</p>
    <p><a href="/signin">Go to Login</a></p>
</body>
</html>`

// Verify redeems an emailed verification token and marks the account
// verified. The token row is deleted on success; a second visit with the
// same link fails like any forged one.
func (h *AuthHandler) Verify(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errJSON(c, http.StatusBadRequest, "MISSING_TOKEN", "Verification token is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.Redeem(ctx, token, model.PurposeEmailVerification)
	if err != nil {
		if err == repository.ErrTokenInvalid {
			return errJSON(c, http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired verification token")
		}
		log.Error().Err(err).Msg("verify: redeem failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify email")
	}
	if err := h.Users.SetVerified(ctx, uid); err != nil {
		log.Error().Err(err).Uint64("user_id", uid).Msg("verify: set verified failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify email")
	}

	h.audit(c, &uid, "email_verified", nil)
	return c.HTML(http.StatusOK, verifiedHTML)
}

// Me returns the authenticated principal together with the stored profile
// and subscription state.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok || p.IsAnonymous() {
		return errJSON(c, http.StatusUnauthorized, "NO_TOKEN", "Authorization token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return errJSON(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		}
		log.Error().Err(err).Msg("me: user lookup failed")
		return errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user")
	}
	sub, err := h.Users.GetSubscription(ctx, u.ID)
	if err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("me: subscription lookup failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			Role:              u.Role,
			Verified:          u.Verified,
			PreferredLanguage: u.PreferredLanguage,
			SubscriptionTier:  u.SubscriptionTier,
			Subscription:      sub,
		},
	})
}

// Logout clears the refresh cookie. With stateless tokens there is
// nothing to revoke server-side; the access token simply runs out its
// remaining TTL.
func (h *AuthHandler) Logout(c echo.Context) error {
	if p, ok := middleware.CurrentPrincipal(c); ok && !p.IsAnonymous() {
		h.audit(c, &p.UserID, "logout", nil)
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// ----- helpers -----

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshTokenFromRequest prefers the HTTP-only cookie and falls back to
// a bearer Authorization header for non-browser clients.
func (h *AuthHandler) refreshTokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// audit publishes a fire-and-forget audit event. Publishing happens off
// the request goroutine and failures are only logged; audit must never
// fail or slow down a request.
func (h *AuthHandler) audit(c echo.Context, userID *uint64, action string, details map[string]any) {
	ev := queue.AuditEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	publish := h.Publish
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = publish(ctx, ev)
	}()
}

func (h *AuthHandler) sendMail(send func(context.Context) error, kind string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := send(ctx); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("email delivery failed")
	}
}
