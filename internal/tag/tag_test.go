package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cat", Normalize("CAT"))
	assert.Equal(t, "cat", Normalize("  Cat "))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeAll(t *testing.T) {
	// Dedup is by normalized name; first occurrence keeps its position.
	got := NormalizeAll([]string{"Cat", "PET", "cat", "", "Indoor", "pet"})
	assert.Equal(t, []string{"cat", "pet", "indoor"}, got)

	assert.Empty(t, NormalizeAll(nil))
	assert.Empty(t, NormalizeAll([]string{"", "  "}))
}
