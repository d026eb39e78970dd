package utils // package utils provides helpers for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zeawatch/backend/internal/model"
)

// Bearer token types embedded in the "type" claim. Verification always
// pins the expected type so an access token can never stand in for a
// refresh token or the other way around.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Verification failures. Callers must not leak the distinction between
// malformed and expired to clients; both map to the same 401 body.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenWrongType = errors.New("unexpected token type")
)

// Claims carried by both bearer token types. Access tokens fill every
// field; refresh tokens carry only the user id and type.
type Claims struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request-scoped identity.
func (c *Claims) Principal() model.Principal {
	return model.Principal{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// IssuedToken pairs a serialized JWT with its expiration time so handlers
// can report expiry without re-parsing the token.
type IssuedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT authorizing individual
// requests. Claims: user_id, email, role, type="access", iat and exp.
// The TTL is expressed in minutes to match the config value.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs the long-lived HS256 JWT exchanged for
// new token pairs. It carries only user_id, type="refresh", iat and exp;
// rotation issues a fresh one on every use.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := Claims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken parses and validates a bearer token. It rejects any token
// whose signature does not match exactly, any non-HMAC signing method,
// expired timestamps (no clock-skew allowance) and type mismatches.
func VerifyToken(secret, raw, expectedType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.TokenType != expectedType {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}
