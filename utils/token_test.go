package authUtils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "admin", time.Hour)
	require.NoError(t, err)

	userID, role, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "admin", role)
}

func TestParseTokenRejects(t *testing.T) {
	good, err := GenerateToken("secret", "user-1", "user", time.Hour)
	require.NoError(t, err)
	defaulted, err := GenerateToken("secret", "user-1", "user", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name, secret, token string
	}{
		{"wrong secret", "other", good},
		{"garbage", "secret", "not-a-token"},
		{"empty", "secret", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	// A non-positive ttl falls back to the default expiry.
	_, _, err = ParseToken("secret", defaulted)
	assert.NoError(t, err)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken("", "user-1", "user", time.Hour)
	assert.Error(t, err)
}
