package control

import (
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/motion"
)

var requestModes = map[input.ModeRequest]motion.Mode{
	input.RequestDeactivate: motion.Deactivated,
	input.RequestRest:       motion.Rest,
	input.RequestStand:      motion.Stand,
	input.RequestWalk:       motion.Walk,
}

// ApplyInput copies the mapper's command into the controller and forwards any pending mode
// request.
func (c *Controller) ApplyInput(m *input.Mapper) {
	c.SetCommand(m.Command())
	req, ok := m.TakeModeRequest()
	if !ok {
		return
	}
	if mode, known := requestModes[req]; known {
		c.SetMode(mode)
	} else {
		c.logger.Warnf("ignoring unknown mode request %q", req)
	}
}
