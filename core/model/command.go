package model

import (
	"fmt"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// CommandType selects the action of an operator command.
type CommandType string

const (
	CommandReturn CommandType = "return"
	CommandGoto   CommandType = "goto"
)

// Command is an operator instruction sent to a single drone.
type Command struct {
	Type     CommandType `json:"type"`
	Position *geo.Point  `json:"position,omitempty"`
}

// Validate checks the command type and, for goto, the destination.
func (c Command) Validate() error {
	switch c.Type {
	case CommandReturn:
		return nil
	case CommandGoto:
		if c.Position == nil || !c.Position.Valid() {
			return fmt.Errorf("goto requires finite coordinates: %w", ErrInvalidInput)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", c.Type, ErrInvalidInput)
	}
}
