package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pantryscout/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService("test-secret")

	t.Run("should round trip subject and scopes", func(t *testing.T) {
		token, err := svc.GenerateToken("scraper", []string{types.ScopeScrape}, time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "scraper", claims.Subject)
		assert.True(t, claims.HasScope(types.ScopeScrape))
		assert.False(t, claims.HasScope(types.ScopeProductsWrite))
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		token, err := NewTokenService("other").GenerateToken("scraper", nil, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		past := NewTokenService("test-secret")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateToken("scraper", nil, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should reject the none algorithm", func(t *testing.T) {
		claims := types.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: tokenIssuer}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("should require a subject", func(t *testing.T) {
		_, err := svc.GenerateToken("  ", nil, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should issue tokens without expiry for zero ttl", func(t *testing.T) {
		token, err := svc.GenerateToken("cli", nil, 0)
		require.NoError(t, err)
		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Nil(t, claims.ExpiresAt)
		assert.True(t, claims.HasScope(types.ScopeProductsWrite))
	})

	t.Run("should reject every token when the secret is empty", func(t *testing.T) {
		enc := base64.RawURLEncoding
		unsigned := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
			enc.EncodeToString([]byte(`{"sub":"attacker","iss":"pantryscout"}`))
		mac := hmac.New(sha256.New, nil)
		mac.Write([]byte(unsigned))
		token := unsigned + "." + enc.EncodeToString(mac.Sum(nil))

		_, err := NewTokenService("").ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
