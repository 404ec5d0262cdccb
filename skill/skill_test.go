package skill

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
)

type compass struct {
	heading float64
	valid   bool
}

func (c *compass) Heading() (float64, bool) {
	return c.heading, c.valid
}

type recordingState struct {
	motion.State
	commands []input.Command
}

func (r *recordingState) HandleCommand(cmd input.Command) {
	r.commands = append(r.commands, cmd)
}

func (r *recordingState) last() input.Command {
	return r.commands[len(r.commands)-1]
}

func TestSpinCompletes(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, clockwise := range []bool{true, false} {
		s := NewSpin(SpinConfig{Clockwise: clockwise}, logger)
		test.That(t, s.RequiredMode(), test.ShouldEqual, motion.Walk)

		c := &compass{heading: 350, valid: true}
		state := &recordingState{}
		pose := body.Pose{}
		s.Begin(&pose, c)

		step := 10.0
		if clockwise {
			step = -step
		}
		ticks := 0
		for !s.IsComplete() && ticks < 100 {
			c.heading += step
			// Wraps through zero on the way.
			if c.heading >= 360 {
				c.heading -= 360
			}
			if c.heading < 0 {
				c.heading += 360
			}
			s.Execute(&pose, state, c, 0.02)
			ticks++
		}
		test.That(t, s.IsComplete(), test.ShouldBeTrue)
		test.That(t, s.TimedOut(), test.ShouldBeFalse)
		// 345 degrees is within tolerance of a full turn.
		test.That(t, ticks, test.ShouldEqual, 35)
		test.That(t, s.Rotated(), test.ShouldAlmostEqual, 350, 1e-9)

		spinning := state.commands[0]
		if clockwise {
			test.That(t, spinning.RX, test.ShouldBeGreaterThan, 0)
		} else {
			test.That(t, spinning.RX, test.ShouldBeLessThan, 0)
		}
		test.That(t, spinning.LX, test.ShouldEqual, 0)
		test.That(t, spinning.LY, test.ShouldEqual, 0)
		test.That(t, state.last().RX, test.ShouldEqual, 0)

		// Further executes are no-ops.
		n := len(state.commands)
		s.Execute(&pose, state, c, 0.02)
		test.That(t, len(state.commands), test.ShouldEqual, n)
	}
}

func TestSpinIgnoresWrongDirection(t *testing.T) {
	s := NewSpin(SpinConfig{Clockwise: true}, logging.NewTestLogger(t))
	c := &compass{heading: 100, valid: true}
	state := &recordingState{}
	pose := body.Pose{}
	s.Begin(&pose, c)

	c.heading = 110
	s.Execute(&pose, state, c, 0.02)
	test.That(t, s.Rotated(), test.ShouldEqual, 0)
	c.heading = 90
	s.Execute(&pose, state, c, 0.02)
	test.That(t, s.Rotated(), test.ShouldAlmostEqual, 20, 1e-9)
}

func TestSpinTimesOut(t *testing.T) {
	s := NewSpin(SpinConfig{Timeout: time.Second}, logging.NewTestLogger(t))
	state := &recordingState{}
	pose := body.Pose{}
	s.Begin(&pose, NoPeripherals{})

	for i := 0; i < 45; i++ {
		s.Execute(&pose, state, NoPeripherals{}, 0.02)
	}
	// Keeps rotating without a heading.
	test.That(t, s.IsComplete(), test.ShouldBeFalse)
	test.That(t, state.last().RX, test.ShouldBeLessThan, 0)

	for i := 0; i < 10; i++ {
		s.Execute(&pose, state, NoPeripherals{}, 0.02)
	}
	test.That(t, s.IsComplete(), test.ShouldBeTrue)
	test.That(t, s.TimedOut(), test.ShouldBeTrue)
	test.That(t, s.Rotated(), test.ShouldEqual, 0)

	s.Reset()
	test.That(t, s.IsComplete(), test.ShouldBeFalse)
	test.That(t, s.TimedOut(), test.ShouldBeFalse)
}

func TestWalkSkill(t *testing.T) {
	logger := logging.NewTestLogger(t)
	g, err := kinematics.ProfileNamed(kinematics.DefaultProfile)
	test.That(t, err, test.ShouldBeNil)
	walkState := motion.NewWalk(g, func() gait.State {
		return gait.NewTrot(g, gait.DefaultTunables(), logger)
	}, motion.DefaultOptions(), logger)
	walkState.Begin()

	w := NewWalk(WalkConfig{Distance: 0.2}, logger)
	test.That(t, w.RequiredMode(), test.ShouldEqual, motion.Walk)
	pose := g.DefaultPose()
	w.Begin(&pose, NoPeripherals{})

	ticks := 0
	for !w.IsComplete() && ticks < 1000 {
		w.Execute(&pose, walkState, NoPeripherals{}, gait.DefaultDt)
		test.That(t, walkState.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
		ticks++
	}
	test.That(t, w.IsComplete(), test.ShouldBeTrue)
	test.That(t, w.TimedOut(), test.ShouldBeFalse)
	test.That(t, w.Traveled(), test.ShouldBeGreaterThanOrEqualTo, 0.15)

	// The gait is told to stop once the distance is covered.
	test.That(t, walkState.Step(&pose, gait.DefaultDt), test.ShouldBeNil)
	test.That(t, walkState.Gait().Parameters().StepX, test.ShouldEqual, 0)
}

func TestWalkSkillTimesOut(t *testing.T) {
	w := NewWalk(WalkConfig{Distance: 1, Timeout: 100 * time.Millisecond}, logging.NewTestLogger(t))
	state := &recordingState{}
	pose := body.Pose{}
	w.Begin(&pose, NoPeripherals{})
	for i := 0; i < 6; i++ {
		w.Execute(&pose, state, NoPeripherals{}, 0.02)
	}
	// A state without a gait contributes no distance.
	test.That(t, w.Traveled(), test.ShouldEqual, 0)
	test.That(t, w.IsComplete(), test.ShouldBeTrue)
	test.That(t, w.TimedOut(), test.ShouldBeTrue)
	test.That(t, state.last().LY, test.ShouldEqual, 0)
	test.That(t, state.commands[0].LY, test.ShouldBeGreaterThan, 0)
}

func TestWalkSkillBackwards(t *testing.T) {
	w := NewWalk(WalkConfig{Distance: -1}, logging.NewTestLogger(t))
	state := &recordingState{}
	pose := body.Pose{}
	w.Begin(&pose, NoPeripherals{})
	w.Execute(&pose, state, NoPeripherals{}, 0.02)
	test.That(t, state.last().LY, test.ShouldBeLessThan, 0)
}
