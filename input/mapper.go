package input

import (
	"math"
	"sync"

	"github.com/spotmicro/locomotion/utils"
)

// ModeRequest is a controller gesture asking for a change of motion mode.
type ModeRequest string

// Mode requests produced by button presses.
const (
	RequestNone       ModeRequest = ""
	RequestDeactivate ModeRequest = "deactivate"
	RequestRest       ModeRequest = "rest"
	RequestStand      ModeRequest = "stand"
	RequestWalk       ModeRequest = "walk"
)

// DefaultDeadband is the stick magnitude below which axes read as zero.
const DefaultDeadband = 0.05

// hatStep is how far one hat press moves the step height modifier.
const hatStep = 0.25

type axisSetter func(cmd *Command, value float64)

// Mapper folds controller events into the latest Command. Only the most recent value of each
// axis is kept; there is no event history. Mapper is safe for concurrent use by an event
// producer and the control loop.
type Mapper struct {
	mu       sync.Mutex
	deadband float64
	cmd      Command
	request  ModeRequest
	axes     map[Control]axisSetter
	buttons  map[Control]ModeRequest
}

// NewMapper returns a Mapper with the default gamepad layout. Forward on the left stick and
// up on the right stick read as negative on most gamepads and are inverted here.
func NewMapper(deadband float64) *Mapper {
	if deadband < 0 {
		deadband = 0
	}
	return &Mapper{
		deadband: deadband,
		axes: map[Control]axisSetter{
			AbsoluteX:  func(c *Command, v float64) { c.LX = v },
			AbsoluteY:  func(c *Command, v float64) { c.LY = -v },
			AbsoluteRX: func(c *Command, v float64) { c.RX = v },
			AbsoluteRY: func(c *Command, v float64) { c.RY = -v },
			AbsoluteZ:  func(c *Command, v float64) { c.H = v },
			AbsoluteRZ: func(c *Command, v float64) { c.S = v },
		},
		buttons: map[Control]ModeRequest{
			ButtonSouth:  RequestWalk,
			ButtonNorth:  RequestStand,
			ButtonEast:   RequestRest,
			ButtonSelect: RequestDeactivate,
		},
	}
}

// Handle applies one event.
func (m *Mapper) Handle(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Event {
	case Disconnect:
		// Losing the controller must not leave the robot walking.
		m.cmd = Command{H: m.cmd.H}
	case PositionChangeAbs:
		if event.Control == AbsoluteHat0Y {
			if event.Value != 0 {
				m.cmd.S1 = utils.Clamp(m.cmd.S1-math.Copysign(hatStep, event.Value), 0, 1)
			}
			return
		}
		set, ok := m.axes[event.Control]
		if !ok {
			return
		}
		value := event.Value
		if math.Abs(value) < m.deadband {
			value = 0
		}
		set(&m.cmd, value)
		m.cmd = m.cmd.Clamp()
	case ButtonPress:
		if req, ok := m.buttons[event.Control]; ok {
			m.request = req
		}
	case AllEvents, Connect, ButtonRelease, ButtonHold, ButtonChange, PositionChangeRel:
	}
}

// Command returns a snapshot of the latest command.
func (m *Mapper) Command() Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cmd
}

// TakeModeRequest returns the pending mode request, if any, and clears it.
func (m *Mapper) TakeModeRequest() (ModeRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req := m.request
	m.request = RequestNone
	return req, req != RequestNone
}
