// Package skill sequences a motion state over many ticks to perform a bounded maneuver.
package skill

import (
	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/motion"
)

// Peripherals are the sensors a skill may consult.
type Peripherals interface {
	// Heading returns the compass heading in degrees, counter-clockwise positive, and whether
	// the reading is valid.
	Heading() (float64, bool)
}

// A Skill drives the active motion state until it reports completion. The controller switches
// to RequiredMode before Begin and calls Execute once per tick; IsComplete is checked after
// every Execute.
type Skill interface {
	Name() string
	Begin(pose *body.Pose, p Peripherals)
	Execute(pose *body.Pose, current motion.State, p Peripherals, dt float64)
	IsComplete() bool
	Reset()
	RequiredMode() motion.Mode
}

// NoPeripherals reports no valid readings.
type NoPeripherals struct{}

// Heading implements Peripherals.
func (NoPeripherals) Heading() (float64, bool) {
	return 0, false
}
