// Package actuator defines the output side of the locomotion pipeline: something that drives
// the twelve joint servos.
package actuator

import (
	"context"
	"math"

	"github.com/spotmicro/locomotion/kinematics"
)

// NumJoints is the number of servos an Actuator drives.
const NumJoints = 12

// DefaultChangeThresholdDeg is the smallest joint change worth writing.
const DefaultChangeThresholdDeg = 0.1

// An Actuator moves the joints. Angles are in degrees, leg by leg as abduction, hip, knee,
// already multiplied by each servo's mounting direction.
type Actuator interface {
	SetAngles(ctx context.Context, angles [NumJoints]float64) error
}

// ServoAngles converts solved joint angles to degrees with per-servo direction signs applied.
func ServoAngles(angles kinematics.JointAngles, directions [NumJoints]float64) [NumJoints]float64 {
	out := angles.Degrees()
	for i := range out {
		out[i] *= directions[i]
	}
	return out
}

// Changed reports whether any joint differs by more than threshold degrees.
func Changed(prev, next [NumJoints]float64, threshold float64) bool {
	for i := range prev {
		if math.Abs(next[i]-prev[i]) > threshold {
			return true
		}
	}
	return false
}
