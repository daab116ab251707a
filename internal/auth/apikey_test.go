package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRawKey(t *testing.T) {
	a, err := GenerateRawKey()
	require.NoError(t, err)
	b, err := GenerateRawKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "mb_")
}

func TestHashKeyNeverStoresRaw(t *testing.T) {
	raw, err := GenerateRawKey()
	require.NoError(t, err)

	hash, err := HashKey(raw)
	require.NoError(t, err)

	assert.NotContains(t, hash, raw)
	assert.True(t, KeyMatches(hash, raw))
	assert.False(t, KeyMatches(hash, raw+"x"))
	assert.False(t, KeyMatches(hash, ""))
}

func TestDisplayPrefix(t *testing.T) {
	raw := "mb_0123456789abcdef0123456789abcdef"
	assert.Equal(t, "mb_01234567", DisplayPrefix(raw))
	// Short inputs come back unchanged rather than panicking.
	assert.Equal(t, "mb_short", DisplayPrefix("mb_short"))
}

func TestPermissionMembership(t *testing.T) {
	key := &ApiKey{Permissions: []Permission{PermUpload, PermSearch}}

	assert.True(t, key.Has(PermUpload))
	assert.True(t, key.Has(PermSearch))
	assert.False(t, key.Has(PermDelete))
	// ADMIN does not imply other flags, and vice versa.
	assert.False(t, key.Has(PermAdmin))

	admin := &ApiKey{Permissions: []Permission{PermAdmin}}
	assert.False(t, admin.Has(PermUpload))
}

func TestValidPermission(t *testing.T) {
	for _, p := range AllPermissions {
		assert.True(t, ValidPermission(p))
	}
	assert.False(t, ValidPermission("SUDO"))
	assert.False(t, ValidPermission("upload"))
}
