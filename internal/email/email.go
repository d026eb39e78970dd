// Package email delivers verification and password-reset links through the
// SendGrid or Mailgun HTTP API. Delivery failures are logged and reported
// to the caller, but the auth flows treat them as non-fatal: the token is
// already persisted and a later resend can pick it up.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zeawatch/backend/internal/config"
)

// Sender posts transactional mail to the configured provider. With an
// empty API key it degrades to logging the would-be delivery, which keeps
// local development free of provider accounts.
type Sender struct {
	provider string
	apiKey   string
	from     string
	appURL   string
	client   *http.Client
}

func NewSender(cfg config.Config) *Sender {
	return &Sender{
		provider: strings.ToLower(cfg.EmailProvider),
		apiKey:   cfg.EmailAPIKey,
		from:     cfg.EmailFrom,
		appURL:   strings.TrimRight(cfg.AppURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendVerification emails the 24h account-confirmation link.
func (s *Sender) SendVerification(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify?token=%s", s.appURL, url.QueryEscape(token))
	subject := "Verify your ZeaWatch account"
	html := fmt.Sprintf(`<html><body>
<h2>Welcome to ZeaWatch, %s!</h2>
<p>Please verify your email address by clicking the link below:</p>
<p><a href="%s">%s</a></p>
<p>This link will expire in 24 hours.</p>
<p>If you didn't create an account, please ignore this email.</p>
</body></html>`, name, link, link)
	return s.send(ctx, to, subject, html)
}

// SendPasswordReset emails the 1h reset link.
func (s *Sender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, url.QueryEscape(token))
	subject := "Reset your ZeaWatch password"
	html := fmt.Sprintf(`<html><body>
<h2>Password Reset Request</h2>
<p>Hello %s,</p>
<p>You requested to reset your password. Click the link below to reset it:</p>
<p><a href="%s">%s</a></p>
<p>This link will expire in 1 hour.</p>
<p>If you didn't request this, please ignore this email.</p>
</body></html>`, name, link, link)
	return s.send(ctx, to, subject, html)
}

func (s *Sender) send(ctx context.Context, to, subject, html string) error {
	if s.apiKey == "" {
		log.Info().Str("to", to).Str("subject", subject).Msg("email delivery disabled, skipping send")
		return nil
	}
	switch s.provider {
	case "mailgun":
		return s.sendMailgun(ctx, to, subject, html)
	default:
		return s.sendSendgrid(ctx, to, subject, html)
	}
}

func (s *Sender) sendSendgrid(ctx context.Context, to, subject, html string) error {
	payload := map[string]any{
		"personalizations": []map[string]any{{"to": []map[string]string{{"email": to}}}},
		"from":             map[string]string{"email": s.from},
		"subject":          subject,
		"content":          []map[string]string{{"type": "text/html", "value": html}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sendgrid.com/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *Sender) sendMailgun(ctx context.Context, to, subject, html string) error {
	domain := strings.SplitN(s.from, "@", 2)
	if len(domain) != 2 {
		return fmt.Errorf("mailgun: cannot derive domain from sender %q", s.from)
	}
	form := url.Values{}
	form.Set("from", s.from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", html)
	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", domain[1])
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth("api", s.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Sender) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned %d", resp.StatusCode)
	}
	return nil
}
