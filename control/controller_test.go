package control

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/spotmicro/locomotion/components/actuator"
	"github.com/spotmicro/locomotion/components/actuator/fake"
	"github.com/spotmicro/locomotion/config"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
	"github.com/spotmicro/locomotion/skill"
)

const dt = 0.02

func newTestController(t *testing.T) (*Controller, *fake.Actuator) {
	t.Helper()
	cfg := config.Default()
	act := fake.NewActuator()
	c, err := NewController(&cfg, act, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return c, act
}

// tickN runs n ticks, failing on anything other than an unreachable pose.
func tickN(t *testing.T, c *Controller, n int) int {
	t.Helper()
	unreachable := 0
	for i := 0; i < n; i++ {
		_, err := c.Tick(context.Background(), dt)
		if err != nil {
			test.That(t, kinematics.IsOutOfReach(err), test.ShouldBeTrue)
			unreachable++
		}
	}
	return unreachable
}

func TestNewControllerValidates(t *testing.T) {
	cfg := config.Default()
	cfg.FrequencyHz = 500
	_, err := NewController(&cfg, fake.NewActuator(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frequency_hz")
}

func TestDeactivatedWritesNothing(t *testing.T) {
	c, act := newTestController(t)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Deactivated)
	test.That(t, tickN(t, c, 10), test.ShouldEqual, 0)
	test.That(t, len(act.Writes()), test.ShouldEqual, 0)
	test.That(t, c.Pose(), test.ShouldResemble, c.Geometry().RestPose())
	test.That(t, c.Telemetry().Ticks, test.ShouldEqual, 10)
}

func TestStandSettlesAndWritesOnChange(t *testing.T) {
	c, act := newTestController(t)
	g := c.Geometry()
	c.SetMode(motion.Stand)
	c.SetCommand(input.Command{H: 0.5})

	test.That(t, tickN(t, c, 500), test.ShouldEqual, 0)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Stand)
	pose := c.Pose()
	want := g.DefaultPose()
	test.That(t, pose.AlmostEqual(&want, 1e-4), test.ShouldBeTrue)

	writes := act.Writes()
	test.That(t, len(writes), test.ShouldBeGreaterThan, 0)
	// Once settled, sub threshold changes are not written.
	test.That(t, len(writes), test.ShouldBeLessThan, 500)

	solver, err := kinematics.NewSolver(g)
	test.That(t, err, test.ShouldBeNil)
	angles, err := solver.Solve(&pose)
	test.That(t, err, test.ShouldBeNil)
	expected := actuator.ServoAngles(angles, config.DefaultServoDirections)
	last := writes[len(writes)-1]
	for i := range last {
		test.That(t, last[i], test.ShouldAlmostEqual, expected[i], actuator.DefaultChangeThresholdDeg)
	}

	// Servo directions are applied to the output.
	telemetry := c.Telemetry()
	test.That(t, last[1], test.ShouldAlmostEqual, -telemetry.Angles[1], actuator.DefaultChangeThresholdDeg)
	test.That(t, telemetry.LastError, test.ShouldBeNil)
}

func TestOutOfReachHoldsLastAngles(t *testing.T) {
	c, act := newTestController(t)
	c.SetMode(motion.Idle)
	before, err := c.Tick(context.Background(), dt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(act.Writes()), test.ShouldEqual, 1)

	c.mu.Lock()
	c.pose.Y = 10
	c.mu.Unlock()

	angles, err := c.Tick(context.Background(), dt)
	test.That(t, errors.Is(err, kinematics.ErrOutOfReach), test.ShouldBeTrue)
	test.That(t, angles, test.ShouldResemble, before)
	test.That(t, len(act.Writes()), test.ShouldEqual, 1)
	test.That(t, c.Telemetry().LastError, test.ShouldNotBeNil)
}

func TestInvalidDtLeavesPose(t *testing.T) {
	for _, mode := range []motion.Mode{motion.Stand, motion.Walk, motion.Idle, motion.Calibration, motion.Deactivated} {
		t.Run(mode.String(), func(t *testing.T) {
			c, act := newTestController(t)
			c.SetMode(mode)
			tickN(t, c, 5)
			before := c.Pose()
			writes := len(act.Writes())
			ticks := c.Telemetry().Ticks
			for _, bad := range []float64{0, -dt, math.NaN(), math.Inf(1)} {
				_, err := c.Tick(context.Background(), bad)
				test.That(t, errors.Is(err, motion.ErrInvalidDt), test.ShouldBeTrue)
				test.That(t, c.Pose(), test.ShouldResemble, before)
			}
			test.That(t, len(act.Writes()), test.ShouldEqual, writes)
			test.That(t, c.Telemetry().Ticks, test.ShouldEqual, ticks)
		})
	}
}

func TestWalkTelemetry(t *testing.T) {
	c, _ := newTestController(t)
	c.SetMode(motion.Walk)
	c.SetCommand(input.Command{LY: 1, S: 1, H: 1})
	tickN(t, c, 50)

	telemetry := c.Telemetry()
	test.That(t, telemetry.Mode, test.ShouldEqual, motion.Walk)
	test.That(t, telemetry.Gait, test.ShouldEqual, gait.TrotName)
	test.That(t, telemetry.Phase.Phase, test.ShouldEqual, 2)
	test.That(t, telemetry.Parameters.StepX, test.ShouldAlmostEqual, c.Geometry().MaxStepLength())
	test.That(t, telemetry.Ticks, test.ShouldEqual, 50)
}

func TestActuatorFailure(t *testing.T) {
	c, act := newTestController(t)
	act.SetError(errors.New("bus fault"))
	c.SetMode(motion.Stand)
	_, err := c.Tick(context.Background(), dt)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bus fault")
	test.That(t, kinematics.IsOutOfReach(err), test.ShouldBeFalse)

	act.SetError(nil)
	_, err = c.Tick(context.Background(), dt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(act.Writes()), test.ShouldEqual, 1)
}

func TestSpinSkillRunsToCompletion(t *testing.T) {
	c, _ := newTestController(t)
	logger := logging.NewTestLogger(t)
	c.SetMode(motion.Stand)
	c.SetCommand(input.Command{H: 0.5})
	tickN(t, c, 200)

	heading := 90.0
	c.SetIMU(IMUReading{HeadingDeg: heading, HeadingValid: true})
	spin := skill.NewSpin(skill.SpinConfig{Clockwise: true}, logger)
	c.StartSkill(spin)

	ticks := 0
	for ; ticks < 200 && !spin.IsComplete(); ticks++ {
		tickN(t, c, 1)
		if ticks == 0 {
			test.That(t, c.Mode(), test.ShouldEqual, motion.Walk)
			test.That(t, c.Telemetry().Skill, test.ShouldEqual, spin.Name())
			test.That(t, c.Telemetry().Parameters.StepAngle, test.ShouldBeGreaterThan, 0)
		}
		heading -= 5
		if heading < 0 {
			heading += 360
		}
		c.SetIMU(IMUReading{HeadingDeg: heading, HeadingValid: true})
	}
	test.That(t, spin.IsComplete(), test.ShouldBeTrue)
	test.That(t, spin.TimedOut(), test.ShouldBeFalse)
	test.That(t, c.Telemetry().Skill, test.ShouldEqual, "")

	// Control returns to the operator command.
	c.SetCommand(input.Command{LY: 0.5, S: 1, H: 0.5})
	tickN(t, c, 1)
	test.That(t, c.Telemetry().Parameters.StepX, test.ShouldBeGreaterThan, 0)
}

func TestSetModeCancelsSkill(t *testing.T) {
	c, _ := newTestController(t)
	spin := skill.NewSpin(skill.SpinConfig{}, logging.NewTestLogger(t))
	c.StartSkill(spin)
	tickN(t, c, 1)
	test.That(t, c.Telemetry().Skill, test.ShouldNotBeEmpty)

	c.SetMode(motion.Stand)
	tickN(t, c, 1)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Stand)
	test.That(t, c.Telemetry().Skill, test.ShouldEqual, "")

	c.StartSkill(spin)
	c.ClearSkill()
	tickN(t, c, 1)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Stand)
	test.That(t, c.Telemetry().Skill, test.ShouldEqual, "")
}

func TestApplyInput(t *testing.T) {
	c, _ := newTestController(t)
	m := input.NewMapper(input.DefaultDeadband)
	m.Handle(input.Event{Event: input.ButtonPress, Control: input.ButtonSouth, Value: 1})
	m.Handle(input.Event{Event: input.PositionChangeAbs, Control: input.AbsoluteY, Value: -1})
	m.Handle(input.Event{Event: input.PositionChangeAbs, Control: input.AbsoluteRZ, Value: 1})

	c.ApplyInput(m)
	tickN(t, c, 1)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Walk)
	test.That(t, c.Telemetry().Parameters.StepX, test.ShouldBeGreaterThan, 0)

	// The request is consumed.
	c.SetMode(motion.Stand)
	c.ApplyInput(m)
	tickN(t, c, 1)
	test.That(t, c.Mode(), test.ShouldEqual, motion.Stand)
}
