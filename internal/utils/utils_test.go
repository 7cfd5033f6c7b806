package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestRefreshTokenHashIsStable(t *testing.T) {
	tok, err := NewRefreshToken(7)
	require.NoError(t, err)
	require.Len(t, tok.Raw, 96)
	assert.Equal(t, HashRefreshRaw(tok.Raw), HashRefreshRaw(tok.Raw))
	assert.NotEqual(t, tok.Raw, HashRefreshRaw(tok.Raw))
}

func TestAccessTokenRoundTripClaims(t *testing.T) {
	access, err := NewAccessToken("secret", 42, "ADMIN", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, access.Token)
	assert.True(t, access.Exp.After(time.Now().UTC()))
	assert.True(t, access.Exp.Before(time.Now().UTC().Add(6*time.Minute)))
}

func TestTicketQRProducesPNG(t *testing.T) {
	png, err := TicketQR("some.token", 128)
	require.NoError(t, err)
	// PNG magic bytes.
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
