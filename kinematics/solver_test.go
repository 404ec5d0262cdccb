package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"github.com/spotmicro/locomotion/body"
)

func newTestSolver(t *testing.T, profile string) *Solver {
	t.Helper()
	g, err := ProfileNamed(profile)
	test.That(t, err, test.ShouldBeNil)
	s, err := NewSolver(g)
	test.That(t, err, test.ShouldBeNil)
	return s
}

func TestRoundTrip(t *testing.T) {
	for _, profile := range ProfileNames() {
		t.Run(profile, func(t *testing.T) {
			s := newTestSolver(t, profile)
			g := s.Geometry()
			heights := []float64{g.MinBodyHeight(), (g.MinBodyHeight() + g.DefaultBodyHeight()) / 2, g.DefaultBodyHeight()}
			step := g.MaxLegReach() * 0.1

			cases := 0
			for _, height := range heights {
				for _, tilt := range []float64{-1, 0, 1} {
					for _, shift := range []float64{-1, 0, 1} {
						pose := body.Pose{
							X:     shift * g.MaxBodyShiftX() / 2,
							Y:     height,
							Z:     -shift * g.MaxBodyShiftZ() / 2,
							Roll:  tilt * 10,
							Pitch: -tilt * 8,
							Yaw:   shift * 10,
							Feet:  g.DefaultFeet(),
						}
						for i := range pose.Feet {
							pose.Feet[i].X += shift * step
							pose.Feet[i].Z += tilt * step * 0.3
						}

						angles, err := s.Solve(&pose)
						test.That(t, err, test.ShouldBeNil)

						got := s.ForwardFeet(&pose, angles)
						for i := range got {
							test.That(t, got[i].X, test.ShouldAlmostEqual, pose.Feet[i].X, 1e-3)
							test.That(t, got[i].Y, test.ShouldAlmostEqual, pose.Feet[i].Y, 1e-3)
							test.That(t, got[i].Z, test.ShouldAlmostEqual, pose.Feet[i].Z, 1e-3)
						}
						cases++
					}
				}
			}
			test.That(t, cases, test.ShouldEqual, 27)
		})
	}
}

func TestDefaultStanceAngles(t *testing.T) {
	s := newTestSolver(t, DefaultProfile)
	pose := s.Geometry().DefaultPose()
	angles, err := s.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)

	// Feet straight under the coxa ends: no abduction, femur and tibia bent symmetrically about
	// the vertical.
	for _, leg := range angles {
		test.That(t, leg.Abduction, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, leg.Knee, test.ShouldBeGreaterThan, 0)
		test.That(t, leg.Hip, test.ShouldBeLessThan, 0)
	}
	test.That(t, angles[body.FrontLeft], test.ShouldResemble, angles[body.RearRight])

	degrees := angles.Degrees()
	flat := angles.Flatten()
	test.That(t, degrees[2], test.ShouldAlmostEqual, flat[2]*180/3.141592653589793, 1e-9)
}

func TestReachBoundary(t *testing.T) {
	for _, profile := range ProfileNames() {
		t.Run(profile, func(t *testing.T) {
			s := newTestSolver(t, profile)
			g := s.Geometry()
			mount := g.MountOffsets()[body.FrontLeft]
			// Directly below the hip pitch pivot with no abduction.
			footAt := func(reach float64) r3.Vector {
				return r3.Vector{X: mount.X, Y: -(g.CoxaOffset + reach), Z: mount.Z + g.Coxa}
			}

			angles, err := s.SolveLeg(body.FrontLeft, footAt(g.MaxLegReach()))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, angles.Abduction, test.ShouldAlmostEqual, 0, 1e-6)

			_, err = s.SolveLeg(body.FrontLeft, footAt(g.MaxLegReach()+1e-4))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrOutOfReach), test.ShouldBeTrue)
			var reachErr *OutOfReachError
			test.That(t, errors.As(err, &reachErr), test.ShouldBeTrue)
			test.That(t, reachErr.Leg, test.ShouldEqual, body.FrontLeft)
			test.That(t, reachErr.Reach, test.ShouldAlmostEqual, g.MaxLegReach()+1e-4, 1e-9)
			test.That(t, reachErr.Max, test.ShouldAlmostEqual, g.MaxLegReach())

			angles, err = s.SolveLeg(body.FrontLeft, footAt(g.MinLegReach()))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, angles.Knee, test.ShouldAlmostEqual, MaxKneeFoldDeg*math.Pi/180, 1e-6)
			_, err = s.SolveLeg(body.FrontLeft, footAt(g.MinLegReach()-1e-4))
			test.That(t, IsOutOfReach(err), test.ShouldBeTrue)
		})
	}
}

func TestInsideCoxaCircle(t *testing.T) {
	s := newTestSolver(t, DefaultProfile)
	g := s.Geometry()
	mount := g.MountOffsets()[body.RearRight]
	_, err := s.SolveLeg(body.RearRight, r3.Vector{X: mount.X, Y: -g.Coxa / 2, Z: mount.Z})
	test.That(t, IsOutOfReach(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rear_right")
}

func TestSolveAggregatesLegs(t *testing.T) {
	s := newTestSolver(t, DefaultProfile)
	g := s.Geometry()
	pose := g.DefaultPose()
	pose.Feet[body.FrontRight].Y = -g.MaxLegReach()
	pose.Feet[body.RearLeft].X += g.MaxLegReach()

	angles, err := s.Solve(&pose)
	test.That(t, IsOutOfReach(err), test.ShouldBeTrue)
	test.That(t, angles, test.ShouldResemble, JointAngles{})

	errs := multierr.Errors(err)
	test.That(t, len(errs), test.ShouldEqual, 2)
	legs := []int{}
	for _, e := range errs {
		var reachErr *OutOfReachError
		test.That(t, errors.As(e, &reachErr), test.ShouldBeTrue)
		legs = append(legs, reachErr.Leg)
	}
	test.That(t, legs, test.ShouldResemble, []int{body.FrontRight, body.RearLeft})
}

func TestSolveCache(t *testing.T) {
	s := newTestSolver(t, DefaultProfile)
	pose := s.Geometry().DefaultPose()
	first, err := s.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)

	// A bad pose never replaces the cached solution.
	bad := pose
	bad.Feet[body.FrontLeft].Y = 1
	_, err = s.Solve(&bad)
	test.That(t, err, test.ShouldNotBeNil)

	again, err := s.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, first)

	pose.Pitch = 5
	moved, err := s.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moved, test.ShouldNotResemble, first)

	s.Reset()
	recomputed, err := s.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recomputed, test.ShouldResemble, moved)
}
