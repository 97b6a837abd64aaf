package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQRTokenRoundTrip(t *testing.T) {
	manager := NewQRTokenManager("qr-test-secret")

	token, err := manager.Issue(42, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sessionID, err := manager.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), sessionID)
}

func TestQRTokenExpiry(t *testing.T) {
	manager := NewQRTokenManager("qr-test-secret")

	token, err := manager.Issue(42, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = manager.Verify(token)
	require.True(t, errors.Is(err, ErrQRTokenExpired))
}

func TestQRTokenRejectsForgeries(t *testing.T) {
	manager := NewQRTokenManager("qr-test-secret")

	_, err := manager.Verify("not-a-jwt")
	require.True(t, errors.Is(err, ErrQRTokenInvalid))

	// Signed with a different secret.
	other := NewQRTokenManager("another-secret")
	token, err := other.Issue(42, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = manager.Verify(token)
	require.True(t, errors.Is(err, ErrQRTokenInvalid))
}
