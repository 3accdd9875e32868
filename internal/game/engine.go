// internal/game/engine.go
//
// Core engine for a single color guessing session.
// Responsibilities:
//   - Create sessions with a uniformly random hidden target.
//   - Apply stepped channel adjustments with clamping to 0–255.
//   - Check answers, hand out Manhattan-distance hints, track counters.
//   - Track state transitions: playing → won (terminal until Reset).
//   - Measure play time from the first adjustment to the winning check.
//
// Notes:
//   - Once won, AdjustChannel and CheckAnswer are no-ops until Reset.
//     RequestHint stays available and reports 0.
//   - Randomness and the clock are injectable for tests (see Option).
package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Option customizes a new Session.
type Option func(*options)

type options struct {
	id     string
	target *Color
	rnd    *rand.Rand
	now    func() time.Time
}

// WithTarget fixes the initial target. Reset still draws a random one.
func WithTarget(c Color) Option {
	return func(o *options) {
		for i := range c {
			c[i] = clamp(c[i])
		}
		o.target = &c
	}
}

// WithRand sets the random source used for targets.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rnd = r }
}

// WithClock sets the wall clock used for play time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithID overrides the generated session identifier.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// New constructs a new session in the playing state.
func New(opts ...Option) *Session {
	o := options{id: uuid.NewString(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{ID: o.id, rnd: o.rnd, now: o.now}
	if o.target != nil {
		s.Target = *o.target
	} else {
		s.Target = s.randomColor()
	}
	return s
}

// AdjustChannel adds delta to one channel of the current guess, clamping to 0–255.
// The first adjustment after (re)initialization starts the play timer.
func (s *Session) AdjustChannel(ch Channel, delta int) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, int(ch))
	}
	if s.Won {
		return nil
	}
	if s.StartedAt == nil {
		t := s.now()
		s.StartedAt = &t
	}
	s.Current[ch] = addClamped(s.Current[ch], delta)
	return nil
}

// CheckAnswer counts an attempt and compares the guess to the target.
// It reports whether the session is won after the call.
func (s *Session) CheckAnswer() bool {
	if s.Won {
		return true
	}
	s.Attempts++
	if s.Current == s.Target {
		t := s.now()
		s.Won = true
		s.FinishedAt = &t
	}
	return s.Won
}

// RequestHint counts a hint and returns the Manhattan distance to the target.
// A distance of 0 means the current guess matches.
func (s *Session) RequestHint() int {
	s.HintsUsed++
	return s.Current.Distance(s.Target)
}

// Elapsed returns the time between the first adjustment and the winning check,
// floored to whole seconds. It is zero until both are known.
func (s *Session) Elapsed() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	d := s.FinishedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// PlayTime formats Elapsed as "mm:ss".
func (s *Session) PlayTime() string {
	return FormatPlayTime(s.Elapsed())
}

// FormatPlayTime renders d as zero-padded minutes and seconds, e.g. 125s → "02:05".
func FormatPlayTime(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Reset discards all progress and draws a new target. The ID is kept and
// Round advances.
func (s *Session) Reset() {
	s.Round++
	s.Target = s.randomColor()
	s.Current = Color{}
	s.Attempts = 0
	s.HintsUsed = 0
	s.Won = false
	s.StartedAt = nil
	s.FinishedAt = nil
}

// State reports the coarse session state.
func (s *Session) State() State {
	if s.Won {
		return StateWon
	}
	return StatePlaying
}

// Started reports whether the player has adjusted any channel yet.
func (s *Session) Started() bool { return s.StartedAt != nil }

// Snapshot returns the renderable view of the session.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:         s.ID,
		Round:      s.Round,
		Current:    s.Current,
		CurrentHex: s.Current.Hex(),
		Target:     s.Target,
		TargetHex:  s.Target.Hex(),
		Attempts:   s.Attempts,
		HintsUsed:  s.HintsUsed,
		State:      s.State(),
		PlayTime:   s.PlayTime(),
		ElapsedMs:  s.Elapsed().Milliseconds(),
	}
}

// randomColor draws three independent uniform channels.
func (s *Session) randomColor() Color {
	var c Color
	for i := range c {
		if s.rnd != nil {
			c[i] = s.rnd.IntN(MaxChannel + 1)
		} else {
			c[i] = rand.IntN(MaxChannel + 1)
		}
	}
	return c
}
