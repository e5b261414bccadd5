package social_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stackpane/go-starter-auth/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedStateManagerRoundtrip(t *testing.T) {
	sm := social.NewSignedStateManager([]byte("state-test-key"), 10*time.Minute)

	state := &social.OAuthState{
		Provider:     "google",
		CodeVerifier: "the-verifier",
		RedirectURL:  "/dashboard",
	}

	token, err := sm.Encode(state)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Encode stamps nonce and expiry in place
	assert.NotEmpty(t, state.Nonce)
	assert.NotZero(t, state.ExpiresAt)

	decoded, err := sm.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "google", decoded.Provider)
	assert.Equal(t, "the-verifier", decoded.CodeVerifier)
	assert.Equal(t, "/dashboard", decoded.RedirectURL)
	assert.Equal(t, state.Nonce, decoded.Nonce)
}

func TestSignedStateManagerRejectsTampering(t *testing.T) {
	sm := social.NewSignedStateManager([]byte("state-test-key"), 10*time.Minute)

	token, err := sm.Encode(&social.OAuthState{Provider: "google"})
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff

		_, err = sm.Decode(base64.RawURLEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, social.ErrInvalidState)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := social.NewSignedStateManager([]byte("different-key"), 10*time.Minute)
		_, err := other.Decode(token)
		assert.ErrorIs(t, err, social.ErrInvalidState)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := sm.Decode("!!! not base64 !!!")
		assert.ErrorIs(t, err, social.ErrInvalidState)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := sm.Decode(base64.RawURLEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, social.ErrInvalidState)
	})

	t.Run("nil state cannot be encoded", func(t *testing.T) {
		_, err := sm.Encode(nil)
		assert.ErrorIs(t, err, social.ErrInvalidState)
	})
}

func TestSignedStateManagerExpiry(t *testing.T) {
	sm := social.NewSignedStateManager([]byte("state-test-key"), 10*time.Minute)

	token, err := sm.Encode(&social.OAuthState{
		Provider:  "google",
		IssuedAt:  time.Now().Add(-time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = sm.Decode(token)
	assert.ErrorIs(t, err, social.ErrStateExpired)
}

func TestNewPKCE(t *testing.T) {
	pkce, err := social.NewPKCE()
	require.NoError(t, err)
	require.NotEmpty(t, pkce.Verifier)
	require.NotEmpty(t, pkce.Challenge)

	// challenge is the S256 transform of the verifier
	sum := sha256.Sum256([]byte(pkce.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pkce.Challenge)

	other, err := social.NewPKCE()
	require.NoError(t, err)
	assert.NotEqual(t, pkce.Verifier, other.Verifier)

	opts := pkce.AuthCodeOptions()
	assert.Len(t, opts, 2)
}
