package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestPurpose: Validates issued tokens parse back to the same session.
// Scope: Unit Test
// Expected: User ID, token ID and expiry survive the round trip.
// Test Case ID: SES-01
func TestManager_IssueParse(t *testing.T) {
	m, err := NewManager(testSecret, "storeadmin", time.Hour)
	require.NoError(t, err)

	token, issued, err := m.Issue(42)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, issued.ID, got.ID)
	assert.WithinDuration(t, issued.ExpiresAt, got.ExpiresAt, time.Second)
	assert.False(t, got.IsExpired())
}

// TestPurpose: Validates that expired, tampered and foreign tokens are rejected.
// Scope: Unit Test
// Security: Token forgery and replay after expiry (CWE-347, CWE-613)
// Expected: ErrSessionExpired for expired; ErrSessionInvalid otherwise.
// Test Case ID: SES-02
func TestManager_Rejects(t *testing.T) {
	m, err := NewManager(testSecret, "storeadmin", time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	expired, _, err := m.Issue(1)
	require.NoError(t, err)
	m.now = time.Now

	_, err = m.Parse(expired)
	assert.ErrorIs(t, err, ErrSessionExpired)

	token, _, err := m.Issue(1)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "x"
	_, err = m.Parse(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSessionInvalid)

	other, err := NewManager(testSecret, "someone-else", time.Minute)
	require.NoError(t, err)
	foreign, _, err := other.Issue(1)
	require.NoError(t, err)
	_, err = m.Parse(foreign)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", Issuer: "storeadmin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

// TestPurpose: Validates the minimum secret length.
// Scope: Unit Test
// Expected: Short secrets are refused.
// Test Case ID: SES-03
func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager("short", "storeadmin", time.Hour)
	assert.Error(t, err)
}
