package motion

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

func testGeometry(t *testing.T) kinematics.Geometry {
	t.Helper()
	g, err := kinematics.ProfileNamed(kinematics.DefaultProfile)
	test.That(t, err, test.ShouldBeNil)
	return g
}

func trotFactory(g kinematics.Geometry, logger logging.Logger) GaitFactory {
	return func() gait.State {
		return gait.NewTrot(g, gait.DefaultTunables(), logger)
	}
}

func TestModes(t *testing.T) {
	test.That(t, Walk.String(), test.ShouldEqual, "walk")
	test.That(t, Mode(42).String(), test.ShouldEqual, "unknown")
	for mode := range modeNames {
		parsed, err := ModeFromString(mode.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, mode)
	}
	parsed, err := ModeFromString("STAND")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldEqual, Stand)
	_, err = ModeFromString("sprint")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRestConverges(t *testing.T) {
	g := testGeometry(t)
	rest := NewRest(g, DefaultOptions(), logging.NewTestLogger(t))
	rest.Begin()
	target := rest.Target()
	test.That(t, target.Y, test.ShouldAlmostEqual, g.MinBodyHeight())

	pose := g.DefaultPose()
	pose.Roll = 8
	pose.X = 0.01
	const tol = 1e-4

	prev := math.Abs(pose.Y - target.Y)
	settled := -1
	for i := 0; i < 1000; i++ {
		rest.HandleCommand(input.Command{})
		test.That(t, rest.Step(&pose, gait.DefaultDt), test.ShouldBeNil)

		dist := math.Abs(pose.Y - target.Y)
		// Monotone and never crossing the target.
		test.That(t, dist, test.ShouldBeLessThanOrEqualTo, prev)
		test.That(t, pose.Y, test.ShouldBeGreaterThanOrEqualTo, target.Y)
		test.That(t, pose.Roll, test.ShouldBeGreaterThanOrEqualTo, 0)
		prev = dist

		if settled < 0 && pose.AlmostEqual(&target, tol) {
			settled = i
		}
		if settled >= 0 {
			test.That(t, pose.AlmostEqual(&target, tol), test.ShouldBeTrue)
		}
	}
	test.That(t, settled, test.ShouldBeGreaterThan, 0)
	test.That(t, settled, test.ShouldBeLessThan, 1000)
}

func TestStandBlends(t *testing.T) {
	g := testGeometry(t)
	stand := NewStand(g, DefaultOptions(), logging.NewTestLogger(t))
	stand.Begin()
	stand.HandleCommand(input.Command{H: 1, RX: 2, RY: -0.5, LX: 1, LY: -1})

	target := stand.Target()
	test.That(t, target.Y, test.ShouldAlmostEqual, g.MaxBodyHeight())
	test.That(t, target.X, test.ShouldAlmostEqual, -g.MaxBodyShiftX())
	test.That(t, target.Z, test.ShouldAlmostEqual, g.MaxBodyShiftZ())

	pose := g.RestPose()
	test.That(t, stand.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	// One tick covers the smoothing fraction of the distance.
	test.That(t, pose.Y, test.ShouldAlmostEqual, utils.Lerp(g.MinBodyHeight(), g.MaxBodyHeight(), DefaultSmoothingFactor))

	for i := 0; i < 1000; i++ {
		test.That(t, stand.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	}
	// Roll is clamped to its limit even though the command asked for more.
	test.That(t, pose.Roll, test.ShouldAlmostEqual, g.MaxRoll(), 1e-6)
	test.That(t, pose.Pitch, test.ShouldAlmostEqual, -0.5*g.MaxPitch(), 1e-6)
	test.That(t, pose.Y, test.ShouldAlmostEqual, g.MaxBodyHeight(), 1e-6)
}

func TestIMUStabilization(t *testing.T) {
	g := testGeometry(t)
	logger := logging.NewTestLogger(t)

	opts := DefaultOptions()
	opts.Stabilize = true
	stabilized := NewStand(g, opts, logger)
	plain := NewStand(g, DefaultOptions(), logger)
	for _, s := range []*StandState{stabilized, plain} {
		s.HandleCommand(input.Command{H: 0.5})
		s.UpdateIMUOffsets(utils.DegToRad(5), utils.DegToRad(-3))
	}

	a, b := g.DefaultPose(), g.DefaultPose()
	for i := 0; i < 1000; i++ {
		test.That(t, stabilized.Step(&a, gait.DefaultDt), test.ShouldBeNil)
		test.That(t, plain.Step(&b, gait.DefaultDt), test.ShouldBeNil)
	}
	test.That(t, a.Roll, test.ShouldAlmostEqual, -5, 1e-6)
	test.That(t, a.Pitch, test.ShouldAlmostEqual, 3, 1e-6)
	test.That(t, b.Roll, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, b.Pitch, test.ShouldAlmostEqual, 0, 1e-6)

	// Compensation is clamped like the command.
	stabilized.UpdateIMUOffsets(utils.DegToRad(-90), 0)
	for i := 0; i < 1000; i++ {
		test.That(t, stabilized.Step(&a, gait.DefaultDt), test.ShouldBeNil)
	}
	test.That(t, a.Roll, test.ShouldAlmostEqual, g.MaxRoll(), 1e-6)
}

func TestFeetCopiedOutsideTolerance(t *testing.T) {
	g := testGeometry(t)
	stand := NewStand(g, DefaultOptions(), logging.NewTestLogger(t))
	stand.HandleCommand(input.Command{H: 0.5})

	pose := g.DefaultPose()
	pose.Feet[body.FrontLeft].X += DefaultFootTolerance / 10
	nudged := pose.Feet
	test.That(t, stand.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	test.That(t, pose.Feet, test.ShouldResemble, nudged)

	pose.Feet[body.FrontLeft].X += 0.01
	test.That(t, stand.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	test.That(t, pose.Feet, test.ShouldResemble, g.DefaultFeet())
}

func TestInvalidDt(t *testing.T) {
	g := testGeometry(t)
	logger := logging.NewTestLogger(t)
	states := []State{
		NewRest(g, DefaultOptions(), logger),
		NewStand(g, DefaultOptions(), logger),
		NewWalk(g, trotFactory(g, logger), DefaultOptions(), logger),
	}
	for _, s := range states {
		s.HandleCommand(input.Command{LY: 1, S: 1, H: 1})
		for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			pose := g.DefaultPose()
			before := pose
			err := s.Step(&pose, dt)
			test.That(t, errors.Is(err, ErrInvalidDt), test.ShouldBeTrue)
			test.That(t, pose, test.ShouldResemble, before)
		}
	}
}

func TestWalkDrivesGait(t *testing.T) {
	g := testGeometry(t)
	logger := logging.NewTestLogger(t)
	walk := NewWalk(g, trotFactory(g, logger), DefaultOptions(), logger)
	walk.Begin()
	test.That(t, walk.Mode(), test.ShouldEqual, Walk)

	walk.HandleCommand(input.Command{LY: 1, S: 1, RY: 0.4})
	target := walk.Target()
	test.That(t, target.Y, test.ShouldAlmostEqual, g.DefaultBodyHeight())
	test.That(t, target.Pitch, test.ShouldAlmostEqual, 0.4*g.MaxPitch())

	pose := g.RestPose()
	for i := 0; i < 50; i++ {
		test.That(t, walk.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	}
	trot, ok := walk.Gait().(*gait.Periodic)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, trot.Advances(), test.ShouldEqual, 6)

	test.That(t, pose.Y, test.ShouldBeGreaterThan, g.MinBodyHeight())
	test.That(t, pose.Y, test.ShouldBeLessThan, g.DefaultBodyHeight())
	test.That(t, pose.Pitch, test.ShouldBeGreaterThan, 0)
	test.That(t, pose.Feet.AlmostEqual(g.DefaultFeet(), 1e-4), test.ShouldBeFalse)
	test.That(t, walk.Target().Feet, test.ShouldResemble, pose.Feet)

	// Walking again starts a fresh gait.
	walk.End()
	walk.Begin()
	trot, ok = walk.Gait().(*gait.Periodic)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, trot.Advances(), test.ShouldEqual, 0)
}

func TestSmoothingOptionDefaults(t *testing.T) {
	g := testGeometry(t)
	s := NewStand(g, Options{SmoothingFactor: 5}, logging.NewTestLogger(t))
	test.That(t, s.opts.SmoothingFactor, test.ShouldEqual, DefaultSmoothingFactor)
	test.That(t, s.opts.FootTolerance, test.ShouldEqual, DefaultFootTolerance)
}
