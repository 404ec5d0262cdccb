// Package kinematics maps a body pose to joint angles for four three-joint legs.
//
// Each leg has an abduction joint at the body mount, a hip pitch joint at the end of the coxa
// (plus the coxa offset) and a knee joint between femur and tibia. Angles are radians:
//   - Abduction is zero when the coxa points straight out from the body and grows as the leg
//     swings down toward the body centre.
//   - Hip is the femur angle in the leg plane, zero pointing straight down along the leg axis,
//     positive toward the front.
//   - Knee is the tibia angle relative to the femur, zero when the leg is straight.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/utils"
)

const (
	// reachEpsilon admits foot positions that sit on the reach boundary up to rounding.
	reachEpsilon = 1e-9
	// cacheTolerance is how close a pose must be to the previous one to reuse its solution.
	cacheTolerance = 1e-9
)

// LegAngles are the three joint angles of one leg, in radians.
type LegAngles struct {
	Abduction float64 `json:"abduction"`
	Hip       float64 `json:"hip"`
	Knee      float64 `json:"knee"`
}

// JointAngles are the joint angles of all four legs.
type JointAngles [body.NumLegs]LegAngles

// Flatten returns the angles leg by leg as abduction, hip, knee.
func (ja JointAngles) Flatten() [12]float64 {
	var out [12]float64
	for i, leg := range ja {
		out[3*i] = leg.Abduction
		out[3*i+1] = leg.Hip
		out[3*i+2] = leg.Knee
	}
	return out
}

// Degrees is Flatten converted to degrees.
func (ja JointAngles) Degrees() [12]float64 {
	out := ja.Flatten()
	for i := range out {
		out[i] = utils.RadToDeg(out[i])
	}
	return out
}

// Solver computes joint angles for a Geometry. It remembers the last solved pose and returns
// the same angles when asked again for an unchanged pose. A Solver is not safe for concurrent
// use; it belongs to the control loop like the pose it solves.
type Solver struct {
	geometry Geometry
	mounts   [body.NumLegs]r3.Vector

	haveLast   bool
	lastPose   body.Pose
	lastAngles JointAngles
}

// NewSolver validates the geometry and returns a solver for it.
func NewSolver(g Geometry) (*Solver, error) {
	if err := g.Validate("geometry"); err != nil {
		return nil, err
	}
	return &Solver{geometry: g, mounts: g.MountOffsets()}, nil
}

// Geometry returns the geometry the solver was built with.
func (s *Solver) Geometry() Geometry {
	return s.geometry
}

// Solve computes joint angles for every leg of the pose. If any foot is out of reach the
// returned error combines one OutOfReachError per failing leg and the angles must not be used.
func (s *Solver) Solve(pose *body.Pose) (JointAngles, error) {
	if s.haveLast && s.lastPose.AlmostEqual(pose, cacheTolerance) {
		return s.lastAngles, nil
	}

	toBody := pose.Orientation().RotationMatrix().Transpose()
	translation := pose.Translation()

	var angles JointAngles
	var errs error
	for i, foot := range pose.Feet {
		legAngles, err := s.SolveLeg(i, toBody.Mul(foot.Sub(translation)))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		angles[i] = legAngles
	}
	if errs != nil {
		return JointAngles{}, errs
	}

	s.haveLast = true
	s.lastPose = *pose
	s.lastAngles = angles
	return angles, nil
}

// SolveLeg computes the joint angles that put one leg's foot at a body-frame position.
func (s *Solver) SolveLeg(leg int, foot r3.Vector) (LegAngles, error) {
	g := s.geometry
	fwd, out, down := s.legLocal(leg, foot)

	// Abduction: the foot must lie outside the circle swept by the coxa.
	dist := math.Hypot(out, down)
	if dist < g.Coxa {
		return LegAngles{}, &OutOfReachError{
			Leg: leg, Reach: dist, Min: g.Coxa, Max: math.Hypot(g.Coxa, g.CoxaOffset+g.MaxLegReach()),
		}
	}
	along := math.Sqrt(dist*dist - g.Coxa*g.Coxa)
	abduction := math.Atan2(down, out) - math.Atan2(along, g.Coxa)

	// Femur and tibia work in the plane of the leg.
	a := along - g.CoxaOffset
	reach := math.Hypot(a, fwd)
	if reach > g.MaxLegReach()+reachEpsilon || reach < g.MinLegReach()-reachEpsilon {
		return LegAngles{}, &OutOfReachError{Leg: leg, Reach: reach, Min: g.MinLegReach(), Max: g.MaxLegReach()}
	}

	cosKnee := (reach*reach - g.Femur*g.Femur - g.Tibia*g.Tibia) / (2 * g.Femur * g.Tibia)
	knee := math.Acos(utils.Clamp(cosKnee, -1, 1))
	hip := math.Atan2(fwd, a) - math.Atan2(g.Tibia*math.Sin(knee), g.Femur+g.Tibia*math.Cos(knee))

	return LegAngles{Abduction: abduction, Hip: hip, Knee: knee}, nil
}

// legLocal expresses a body-frame foot relative to the leg mount as forward, outward and
// downward components. Outward is mirrored for the right legs.
func (s *Solver) legLocal(leg int, foot r3.Vector) (fwd, out, down float64) {
	d := foot.Sub(s.mounts[leg])
	return d.X, body.Side(leg) * d.Z, -d.Y
}

// ForwardLeg returns the body-frame foot position produced by a leg's joint angles.
func (s *Solver) ForwardLeg(leg int, angles LegAngles) r3.Vector {
	g := s.geometry
	sa, ca := math.Sincos(angles.Abduction)
	a := g.Femur*math.Cos(angles.Hip) + g.Tibia*math.Cos(angles.Hip+angles.Knee)
	fwd := g.Femur*math.Sin(angles.Hip) + g.Tibia*math.Sin(angles.Hip+angles.Knee)

	along := g.CoxaOffset + a
	out := g.Coxa*ca - along*sa
	down := g.Coxa*sa + along*ca

	mount := s.mounts[leg]
	return r3.Vector{X: mount.X + fwd, Y: mount.Y - down, Z: mount.Z + body.Side(leg)*out}
}

// ForwardFeet returns the world-frame foot positions produced by joint angles with the body
// at the given translation and orientation. The pose's own feet are ignored.
func (s *Solver) ForwardFeet(pose *body.Pose, angles JointAngles) body.Feet {
	toWorld := pose.Orientation().RotationMatrix()
	translation := pose.Translation()

	var feet body.Feet
	for i := range feet {
		feet[i] = toWorld.Mul(s.ForwardLeg(i, angles[i])).Add(translation)
	}
	return feet
}

// Reset drops the cached solution so the next Solve recomputes.
func (s *Solver) Reset() {
	s.haveLast = false
}
