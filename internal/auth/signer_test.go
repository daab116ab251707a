package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins the signer's notion of now for deterministic expiry tests.
func fixedClock(s *Signer, at time.Time) func(time.Time) {
	s.now = func() time.Time { return at }
	return func(t time.Time) { s.now = func() time.Time { return t } }
}

func TestSignAndVerify(t *testing.T) {
	s := NewSigner("secret", time.Hour, 7*24*time.Hour)
	issue := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	setNow := fixedClock(s, issue)

	sig, expires := s.Sign(42, 3600*time.Second)
	require.Equal(t, issue.Add(time.Hour).Unix(), expires)

	// One second before expiry: valid.
	setNow(issue.Add(3600*time.Second - time.Second))
	assert.True(t, s.Verify(42, expires, sig))

	// At the expiry instant: still valid (current time ≤ expiry).
	setNow(issue.Add(3600 * time.Second))
	assert.True(t, s.Verify(42, expires, sig))

	// One second past: invalid.
	setNow(issue.Add(3601 * time.Second))
	assert.False(t, s.Verify(42, expires, sig))
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner("secret", time.Hour, 7*24*time.Hour)
	issue := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(s, issue)

	sig, expires := s.Sign(42, time.Hour)

	// Wrong record.
	assert.False(t, s.Verify(43, expires, sig))
	// Stretched expiry invalidates the signature.
	assert.False(t, s.Verify(42, expires+9999, sig))
	// Corrupted signature.
	assert.False(t, s.Verify(42, expires, sig[:len(sig)-2]+"ff"))
	// Different secret.
	other := NewSigner("other-secret", time.Hour, 7*24*time.Hour)
	fixedClock(other, issue)
	assert.False(t, other.Verify(42, expires, sig))
}

func TestSignClampsToMaxExpiry(t *testing.T) {
	s := NewSigner("secret", time.Hour, 2*time.Hour)
	issue := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(s, issue)

	// A client asking for a week gets the maximum, never more.
	_, expires := s.Sign(42, 7*24*time.Hour)
	assert.Equal(t, issue.Add(2*time.Hour).Unix(), expires)
}

func TestSignDefaultExpiry(t *testing.T) {
	s := NewSigner("secret", 30*time.Minute, 2*time.Hour)
	issue := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(s, issue)

	_, expires := s.Sign(42, 0)
	assert.Equal(t, issue.Add(30*time.Minute).Unix(), expires)
}
