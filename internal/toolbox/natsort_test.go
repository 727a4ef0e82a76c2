package toolbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortNatural(t *testing.T) {
	titles := []string{"img12", "img2", "img1", "img10"}
	sortNatural(titles)
	assert.Equal(t, []string{"img1", "img2", "img10", "img12"}, titles)
}

func TestSortNaturalMixed(t *testing.T) {
	titles := []string{"b", "a10c", "a2b", "a2a", "a"}
	sortNatural(titles)
	assert.Equal(t, []string{"a", "a2a", "a2b", "a10c", "b"}, titles)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("well2", "well10"))
	assert.False(t, naturalLess("well10", "well2"))
	assert.True(t, naturalLess("abc", "abd"))
	assert.False(t, naturalLess("same", "same"))
	// Numeric chunks sort before longer plain prefixes.
	assert.True(t, naturalLess("a1", "a1x"))
}
