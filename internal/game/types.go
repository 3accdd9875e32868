// internal/game/types.go
//
// Core type definitions for the color guessing engine.
// Defines:
//   - Color: an RGB triple with channels clamped to 0–255.
//   - Channel: index of one component (R/G/B).
//   - State: coarse session state (playing/won).
//   - Session: state for a single play-through.
//   - Snapshot: read-only view handed to renderers.

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Channel bounds.
const (
	MinChannel = 0
	MaxChannel = 255
)

// ErrInvalidChannel is returned for a channel index or name outside R/G/B.
var ErrInvalidChannel = errors.New("invalid channel")

// ErrInvalidColor is returned by ParseHex for malformed input.
var ErrInvalidColor = errors.New("invalid color")

// Channel identifies one component of a Color.
type Channel int

const (
	Red Channel = iota
	Green
	Blue
)

// Valid reports whether c is R, G or B.
func (c Channel) Valid() bool { return c >= Red && c <= Blue }

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ParseChannel accepts "r"/"red", "g"/"green", "b"/"blue" in any case.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "red":
		return Red, nil
	case "g", "green":
		return Green, nil
	case "b", "blue":
		return Blue, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, s)
}

// Color is an RGB triple. Each component lies in [0, 255].
type Color [3]int

// State reports whether the session is still being played.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
)

// Session holds the state of a single color guessing session.
// A Session is not safe for concurrent use; owners serialize access.
type Session struct {
	ID         string     // Stable identifier, kept across Reset.
	Round      int        // Number of resets since creation.
	Target     Color      // Color the player must reproduce.
	Current    Color      // Player's in-progress guess.
	Attempts   int        // Number of checks made while playing.
	HintsUsed  int        // Number of hints requested.
	Won        bool       // True once a check matched Target.
	StartedAt  *time.Time // First channel adjustment since (re)initialization.
	FinishedAt *time.Time // Time of the winning check.

	rnd *rand.Rand
	now func() time.Time
}

// Snapshot is the renderable view of a Session. The target is always
// included: the player plays against a visible swatch.
type Snapshot struct {
	ID         string `json:"id"`
	Round      int    `json:"round"`
	Current    Color  `json:"current"`
	CurrentHex string `json:"currentHex"`
	Target     Color  `json:"target"`
	TargetHex  string `json:"targetHex"`
	Attempts   int    `json:"attempts"`
	HintsUsed  int    `json:"hintsUsed"`
	State      State  `json:"state"`
	PlayTime   string `json:"playTime"`
	ElapsedMs  int64  `json:"elapsedMs"`
}
