package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer issues and verifies time-limited signed URLs. The signature is an
// HMAC-SHA256 over "recordID:expiry" under a symmetric deployment secret, so
// a URL grants read access to exactly one record until its expiry.
type Signer struct {
	secret        []byte
	defaultExpiry time.Duration
	maxExpiry     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewSigner creates a Signer with the given secret and expiry policy.
func NewSigner(secret string, defaultExpiry, maxExpiry time.Duration) *Signer {
	return &Signer{
		secret:        []byte(secret),
		defaultExpiry: defaultExpiry,
		maxExpiry:     maxExpiry,
		now:           time.Now,
	}
}

// Sign issues a signature for recordID valid for the requested duration.
// A non-positive duration selects the default; anything beyond the configured
// maximum is clamped — a client-requested expiry is never trusted past it.
// Returns the hex signature and the absolute expiry as a unix timestamp.
func (s *Signer) Sign(recordID int64, expiresIn time.Duration) (signature string, expires int64) {
	if expiresIn <= 0 {
		expiresIn = s.defaultExpiry
	}
	if expiresIn > s.maxExpiry {
		expiresIn = s.maxExpiry
	}
	expires = s.now().Add(expiresIn).Unix()
	return s.compute(recordID, expires), expires
}

// Verify checks a presented signature. Valid iff the current time has not
// passed the expiry AND the signature recomputed from (recordID, expires)
// matches under constant-time comparison.
func (s *Signer) Verify(recordID int64, expires int64, signature string) bool {
	if s.now().Unix() > expires {
		return false
	}
	expected := s.compute(recordID, expires)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Signer) compute(recordID, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d:%d", recordID, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
