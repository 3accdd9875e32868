package game

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned by Apply for an unrecognized command.
var ErrUnknownAction = errors.New("unknown action")

// Action names a player interaction.
type Action string

const (
	ActionAdjust Action = "adjust"
	ActionCheck  Action = "check"
	ActionHint   Action = "hint"
	ActionReset  Action = "reset"
	ActionState  Action = "state"
)

// Command is a single player interaction as sent by a client.
type Command struct {
	Action  Action `json:"type"`
	Channel string `json:"channel,omitempty"`
	Delta   int    `json:"delta,omitempty"`
}

// Outcome is what a client renders after a Command.
type Outcome struct {
	Action   Action   `json:"action"`
	Won      *bool    `json:"won,omitempty"`
	Distance *int     `json:"distance,omitempty"`
	Snapshot Snapshot `json:"snapshot"`

	// Finished is set when this command produced the win.
	Finished bool `json:"-"`
	// Abandoned is set when a reset discarded a started, unfinished round.
	Abandoned bool `json:"-"`
	// Before is the view prior to the command; meaningful for resets.
	Before Snapshot `json:"-"`
}

// Apply dispatches cmd to the matching Session operation.
func (s *Session) Apply(cmd Command) (Outcome, error) {
	out := Outcome{Action: cmd.Action, Before: s.Snapshot()}
	switch cmd.Action {
	case ActionAdjust:
		ch, err := ParseChannel(cmd.Channel)
		if err != nil {
			return out, err
		}
		if err := s.AdjustChannel(ch, cmd.Delta); err != nil {
			return out, err
		}
	case ActionCheck:
		was := s.Won
		won := s.CheckAnswer()
		out.Won = &won
		out.Finished = won && !was
	case ActionHint:
		d := s.RequestHint()
		out.Distance = &d
	case ActionReset:
		out.Abandoned = s.Started() && !s.Won
		s.Reset()
	case ActionState:
	default:
		return out, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	out.Snapshot = s.Snapshot()
	return out, nil
}
