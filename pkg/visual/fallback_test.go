package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackChain(t *testing.T) {
	c := NewFallbackChain("p", []string{"g", "", "ph"})
	require.Equal(t, 3, c.Len())

	u, ok := c.Current()
	assert.True(t, ok)
	assert.Equal(t, "p", u)
	assert.Equal(t, Loading, c.State())

	u, ok = c.Fail()
	assert.True(t, ok)
	assert.Equal(t, "g", u)

	u, ok = c.Fail()
	assert.True(t, ok)
	assert.Equal(t, "ph", u)

	_, ok = c.Fail()
	assert.False(t, ok)
	assert.True(t, c.Unavailable())

	// Terminal: no more attempts.
	_, ok = c.Current()
	assert.False(t, ok)
	_, ok = c.Fail()
	assert.False(t, ok)
	c.Loaded()
	assert.Equal(t, Unavailable, c.State())
}

func TestFallbackChain_LoadedFirstTry(t *testing.T) {
	c := NewFallbackChain("p", nil)
	c.Loaded()
	assert.Equal(t, Loaded, c.State())
	assert.Equal(t, "loaded", c.State().String())
}

func TestFallbackChain_Empty(t *testing.T) {
	c := NewFallbackChain("", nil)
	assert.True(t, c.Unavailable())
	_, ok := c.Current()
	assert.False(t, ok)
}
