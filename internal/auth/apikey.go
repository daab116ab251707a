// Package auth implements the three access-control mechanisms: bearer API
// keys, HMAC signed URLs, and permanent revocable tokens. Any one of them is
// sufficient to authorize a media read; write and admin operations require an
// API key carrying the operation's permission.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Permission is a capability flag granted to an API key.
type Permission string

// Capability flags recognized by the HTTP boundary.
const (
	PermUpload            Permission = "UPLOAD"
	PermDelete            Permission = "DELETE"
	PermSearch            Permission = "SEARCH"
	PermGenerateSignedURL Permission = "GENERATE_SIGNED_URL"
	PermAdmin             Permission = "ADMIN"
)

// AllPermissions lists every capability flag, in display order.
var AllPermissions = []Permission{PermUpload, PermDelete, PermSearch, PermGenerateSignedURL, PermAdmin}

// ValidPermission reports whether p is a recognized capability flag.
func ValidPermission(p Permission) bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// ApiKey is a bearer credential. Only the bcrypt hash of the raw key is
// stored; the raw key is generated once, shown once, and never recoverable.
type ApiKey struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	KeyPrefix   string       `json:"keyPrefix"`
	KeyHash     string       `json:"-"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"isActive"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Has reports whether the key carries the given permission. A plain
// set-membership test: ADMIN does not imply the other flags.
func (k *ApiKey) Has(p Permission) bool {
	for _, granted := range k.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

const rawKeyPrefix = "mb_"

// GenerateRawKey returns fresh cryptographically random key material.
// The "mb_" marker makes keys recognizable in config files and logs redaction.
func GenerateRawKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	return rawKeyPrefix + hex.EncodeToString(buf), nil
}

// DisplayPrefix returns the short identifying prefix stored alongside the
// hash, enough to tell keys apart in listings without revealing the secret.
func DisplayPrefix(raw string) string {
	if len(raw) <= len(rawKeyPrefix)+8 {
		return raw
	}
	return raw[:len(rawKeyPrefix)+8]
}

// HashKey derives the one-way stored credential from the raw key.
func HashKey(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// KeyMatches verifies raw key material against a stored hash. bcrypt's
// comparison is constant-time with respect to the candidate.
func KeyMatches(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
