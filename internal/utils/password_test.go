package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zeawatch/backend/internal/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := utils.HashPassword("Passw0rd", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd", hash)

	assert.True(t, utils.VerifyPassword(hash, "Passw0rd"))
	assert.False(t, utils.VerifyPassword(hash, "passw0rd"))
	assert.False(t, utils.VerifyPassword("", "Passw0rd"))
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Passw0rd", true},
		{"too short", "abc", false},
		{"short but mixed", "Ab1", false},
		{"no uppercase", "password1", false},
		{"no lowercase", "PASSWORD1", false},
		{"no digit", "Passwords", false},
		{"long valid", "CorrectHorse9battery", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := utils.ValidatePasswordStrength(tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewOpaqueToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := utils.NewOpaqueToken()
		require.NoError(t, err)
		// 32 random bytes -> 43 chars of unpadded base64url
		assert.Len(t, tok, 43)
		assert.NotContains(t, tok, "+")
		assert.NotContains(t, tok, "/")
		assert.NotContains(t, tok, "=")
		assert.False(t, seen[tok], "duplicate token generated")
		seen[tok] = true
	}
}
