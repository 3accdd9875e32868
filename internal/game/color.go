package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Hex renders c as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[Red], c[Green], c[Blue])
}

// Distance is the Manhattan distance between two colors (0..765).
func (c Color) Distance(o Color) int {
	d := 0
	for i := range c {
		d += abs(c[i] - o[i])
	}
	return d
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	var c Color
	for i := range c {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		c[i] = int(v)
	}
	return c, nil
}

func clamp(v int) int {
	if v < MinChannel {
		return MinChannel
	}
	if v > MaxChannel {
		return MaxChannel
	}
	return v
}

// addClamped adds delta to v without overflowing int.
func addClamped(v, delta int) int {
	// v is always in range, so only extreme deltas can overflow.
	if delta > MaxChannel {
		return MaxChannel
	}
	if delta < -MaxChannel {
		return MinChannel
	}
	return clamp(v + delta)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
