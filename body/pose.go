// Package body holds the canonical robot state: body translation and orientation plus the four
// commanded foot positions.
package body

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/spotmicro/locomotion/spatialmath"
	"github.com/spotmicro/locomotion/utils"
)

// NumLegs is the number of legs on the robot.
const NumLegs = 4

// Leg indices.
const (
	FrontLeft = iota
	FrontRight
	RearLeft
	RearRight
)

var legNames = [NumLegs]string{"front_left", "front_right", "rear_left", "rear_right"}

// LegName returns a readable name for a leg index.
func LegName(leg int) string {
	if leg < 0 || leg >= NumLegs {
		return fmt.Sprintf("leg_%d", leg)
	}
	return legNames[leg]
}

// Side returns +1 for the left legs and -1 for the right legs.
func Side(leg int) float64 {
	if leg%2 == 0 {
		return 1
	}
	return -1
}

// Feet are the four foot positions in the world frame, in metres.
type Feet [NumLegs]r3.Vector

// AlmostEqual reports whether every foot is within tol of the matching foot in other.
func (f Feet) AlmostEqual(other Feet, tol float64) bool {
	for i := range f {
		if !utils.Float64AlmostEqual(f[i].X, other[i].X, tol) ||
			!utils.Float64AlmostEqual(f[i].Y, other[i].Y, tol) ||
			!utils.Float64AlmostEqual(f[i].Z, other[i].Z, tol) {
			return false
		}
	}
	return true
}

// Sub returns the per-foot difference f - other.
func (f Feet) Sub(other Feet) Feet {
	var out Feet
	for i := range f {
		out[i] = f[i].Sub(other[i])
	}
	return out
}

func (f Feet) String() string {
	parts := make([]string, 0, NumLegs)
	for i, foot := range f {
		parts = append(parts, fmt.Sprintf("%s(%.4f, %.4f, %.4f)", LegName(i), foot.X, foot.Y, foot.Z))
	}
	return strings.Join(parts, " ")
}

// Pose is the body translation (X forward, Y height, Z lateral) in metres, the body orientation
// in degrees and the foot positions. One Pose is owned by the control loop and mutated in place.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Feet  Feet    `json:"feet"`
}

// UpdateFeet replaces all foot positions.
func (p *Pose) UpdateFeet(feet Feet) {
	p.Feet = feet
}

// Translation returns the body translation.
func (p *Pose) Translation() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Orientation returns the body orientation in radians.
func (p *Pose) Orientation() *spatialmath.EulerAngles {
	return spatialmath.NewEulerAnglesDegrees(p.Roll, p.Pitch, p.Yaw)
}

// AlmostEqual compares translation, orientation and feet field by field within tol.
func (p *Pose) AlmostEqual(other *Pose, tol float64) bool {
	return utils.Float64AlmostEqual(p.X, other.X, tol) &&
		utils.Float64AlmostEqual(p.Y, other.Y, tol) &&
		utils.Float64AlmostEqual(p.Z, other.Z, tol) &&
		utils.Float64AlmostEqual(p.Roll, other.Roll, tol) &&
		utils.Float64AlmostEqual(p.Pitch, other.Pitch, tol) &&
		utils.Float64AlmostEqual(p.Yaw, other.Yaw, tol) &&
		p.Feet.AlmostEqual(other.Feet, tol)
}

func (p *Pose) String() string {
	return fmt.Sprintf("pos(%.4f, %.4f, %.4f) rpy(%.2f, %.2f, %.2f) feet[%s]",
		p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw, p.Feet)
}
