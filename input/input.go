// Package input describes operator intent: the normalized Command consumed by the locomotion
// core, and the controller events that produce it.
package input

import (
	"fmt"
	"time"

	"github.com/spotmicro/locomotion/utils"
)

// Command is normalized operator intent. Sticks are in [-1, 1]; height, speed and the auxiliary
// step height modifier are in [0, 1]. A zero Command is a valid "do nothing" request.
type Command struct {
	// LX is the left stick lateral axis: strafe, or body lateral shift when standing.
	LX float64 `json:"lx"`
	// LY is the left stick forward axis.
	LY float64 `json:"ly"`
	// RX is the right stick lateral axis: turn rate, or body roll when standing.
	RX float64 `json:"rx"`
	// RY is the right stick forward axis: body pitch.
	RY float64 `json:"ry"`
	// H is body height.
	H float64 `json:"h"`
	// S is gait speed.
	S float64 `json:"s"`
	// S1 is the step height modifier.
	S1 float64 `json:"s1"`
}

// Clamp returns the command with every field forced into its range.
func (c Command) Clamp() Command {
	return Command{
		LX: utils.Clamp(c.LX, -1, 1),
		LY: utils.Clamp(c.LY, -1, 1),
		RX: utils.Clamp(c.RX, -1, 1),
		RY: utils.Clamp(c.RY, -1, 1),
		H:  utils.Clamp(c.H, 0, 1),
		S:  utils.Clamp(c.S, 0, 1),
		S1: utils.Clamp(c.S1, 0, 1),
	}
}

func (c Command) String() string {
	return fmt.Sprintf("lx=%.2f ly=%.2f rx=%.2f ry=%.2f h=%.2f s=%.2f s1=%.2f", c.LX, c.LY, c.RX, c.RY, c.H, c.S, c.S1)
}

// EventType represents the type of input event.
type EventType string

// EventType list.
const (
	AllEvents EventType = "AllEvents"
	Connect   EventType = "Connect"
	// Disconnect is sent when the controller is unplugged or a remote link times out.
	Disconnect        EventType = "Disconnect"
	ButtonPress       EventType = "ButtonPress"
	ButtonRelease     EventType = "ButtonRelease"
	ButtonHold        EventType = "ButtonHold"
	ButtonChange      EventType = "ButtonChange" // Both up and down for convenience during registration, not typically emitted
	PositionChangeAbs EventType = "PositionChangeAbs"
	PositionChangeRel EventType = "PositionChangeRel" // Relative position is reported, a la mice, or simulating axes with up/down buttons
)

// Control identifies the input (specific Axis or Button) of a controller.
type Control string

// Controls, to be expanded as new input devices are developed.
const (
	// Axes.
	AbsoluteX     Control = "AbsoluteX"
	AbsoluteY     Control = "AbsoluteY"
	AbsoluteZ     Control = "AbsoluteZ"
	AbsoluteRX    Control = "AbsoluteRX"
	AbsoluteRY    Control = "AbsoluteRY"
	AbsoluteRZ    Control = "AbsoluteRZ"
	AbsoluteHat0X Control = "AbsoluteHat0X"
	AbsoluteHat0Y Control = "AbsoluteHat0Y"

	// Buttons.
	ButtonSouth  Control = "ButtonSouth"
	ButtonEast   Control = "ButtonEast"
	ButtonWest   Control = "ButtonWest"
	ButtonNorth  Control = "ButtonNorth"
	ButtonLT     Control = "ButtonLT"
	ButtonRT     Control = "ButtonRT"
	ButtonSelect Control = "ButtonSelect"
	ButtonStart  Control = "ButtonStart"
	ButtonMenu   Control = "ButtonMenu"
)

// Event is passed to the Mapper for every controller change.
type Event struct {
	Time    time.Time
	Event   EventType
	Control Control // Key or Axis
	Value   float64 // 0 or 1 for buttons, -1.0 to +1.0 for axes
}
