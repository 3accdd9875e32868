package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexRoundTrip(t *testing.T) {
	for _, c := range []Color{{0, 0, 0}, {255, 255, 255}, {10, 20, 30}, {171, 205, 239}} {
		got, err := ParseHex(c.Hex())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	assert.Equal(t, "#0a141e", Color{10, 20, 30}.Hex())
}

func TestParseHexRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#fff", "#gg0000", "1234567", "#12345"} {
		_, err := ParseHex(in)
		assert.ErrorIs(t, err, ErrInvalidColor, in)
	}
	c, err := ParseHex("  ABCDEF ")
	require.NoError(t, err)
	assert.Equal(t, Color{0xab, 0xcd, 0xef}, c)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 15, Color{5, 5, 5}.Distance(Color{10, 0, 10}))
	assert.Equal(t, 765, Color{0, 0, 0}.Distance(Color{255, 255, 255}))
	assert.Equal(t, 0, Color{1, 2, 3}.Distance(Color{1, 2, 3}))
}

func TestParseChannel(t *testing.T) {
	cases := map[string]Channel{"r": Red, "RED": Red, "g": Green, " Green ": Green, "b": Blue, "blue": Blue}
	for in, want := range cases {
		got, err := ParseChannel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "alpha", "x", "0"} {
		_, err := ParseChannel(in)
		assert.ErrorIs(t, err, ErrInvalidChannel, in)
	}
	assert.Equal(t, "green", Green.String())
}
