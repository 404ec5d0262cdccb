// Package control runs the locomotion pipeline: operator input or an active skill feeds the
// motion state, the motion state moves the body pose, the solver turns the pose into joint
// angles and the actuator receives them.
package control

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/components/actuator"
	"github.com/spotmicro/locomotion/config"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
	"github.com/spotmicro/locomotion/skill"
)

// IMUReading is the latest orientation estimate. Roll and pitch are in radians.
type IMUReading struct {
	Roll  float64
	Pitch float64
	// HeadingDeg is the compass heading in degrees, counter-clockwise positive.
	HeadingDeg   float64
	HeadingValid bool
}

// Heading implements skill.Peripherals.
func (r IMUReading) Heading() (float64, bool) {
	return r.HeadingDeg, r.HeadingValid
}

// Telemetry is a snapshot of the controller taken between ticks.
type Telemetry struct {
	Mode        motion.Mode
	Pose        body.Pose
	Orientation quat.Number
	Gait        string
	Parameters  gait.Parameters
	Phase       gait.InternalState
	Skill       string
	Ticks       int64
	// Angles are the last valid joint angles in degrees, before servo directions.
	Angles    [actuator.NumJoints]float64
	LastError error
}

// Controller owns the body pose and advances the whole pipeline once per Tick. The Set
// methods may be called from any goroutine; their values are latched and applied at the start
// of the next tick.
type Controller struct {
	logger     logging.Logger
	geometry   kinematics.Geometry
	solver     *kinematics.Solver
	act        actuator.Actuator
	directions [actuator.NumJoints]float64

	inputMu      sync.Mutex
	cmd          input.Command
	imu          IMUReading
	haveIMU      bool
	requested    motion.Mode
	modeRequest  bool
	pendingSkill skill.Skill
	clearSkill   bool

	mu          sync.Mutex
	states      map[motion.Mode]motion.State
	mode        motion.Mode
	current     motion.State
	skill       skill.Skill
	pose        body.Pose
	angles      kinematics.JointAngles
	haveAngles  bool
	written     [actuator.NumJoints]float64
	haveWritten bool
	ticks       int64
	lastErr     error
}

// NewController builds a controller from a validated config. The controller starts
// deactivated with the body in its rest pose.
func NewController(cfg *config.Config, act actuator.Actuator, logger logging.Logger) (*Controller, error) {
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	g, err := cfg.ResolveGeometry()
	if err != nil {
		return nil, err
	}
	solver, err := kinematics.NewSolver(g)
	if err != nil {
		return nil, err
	}
	if _, err := gait.New(cfg.Gait, g, cfg.Tunables, logger); err != nil {
		return nil, err
	}

	opts := cfg.MotionOptions()
	gaitName, tunables := cfg.Gait, cfg.Tunables
	newGait := func() gait.State {
		// Validated above.
		s, _ := gait.New(gaitName, g, tunables, logger)
		return s
	}

	c := &Controller{
		logger:     logger,
		geometry:   g,
		solver:     solver,
		act:        act,
		directions: cfg.ServoDirections,
		states: map[motion.Mode]motion.State{
			motion.Rest:  motion.NewRest(g, opts, logger),
			motion.Stand: motion.NewStand(g, opts, logger),
			motion.Walk:  motion.NewWalk(g, newGait, opts, logger),
		},
		mode: motion.Deactivated,
		pose: g.RestPose(),
	}
	return c, nil
}

// SetCommand latches the operator command.
func (c *Controller) SetCommand(cmd input.Command) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.cmd = cmd.Clamp()
}

// SetIMU latches the latest IMU reading.
func (c *Controller) SetIMU(r IMUReading) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.imu, c.haveIMU = r, true
}

// SetMode requests a mode change on the next tick. An operator mode change cancels any
// running skill.
func (c *Controller) SetMode(mode motion.Mode) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.requested, c.modeRequest = mode, true
	c.pendingSkill, c.clearSkill = nil, true
}

// StartSkill runs s from the next tick, replacing any running skill.
func (c *Controller) StartSkill(s skill.Skill) {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.pendingSkill, c.clearSkill = s, false
}

// ClearSkill stops the running skill on the next tick.
func (c *Controller) ClearSkill() {
	c.inputMu.Lock()
	defer c.inputMu.Unlock()
	c.pendingSkill, c.clearSkill = nil, true
}

// Tick advances the pipeline by dt seconds and returns the joint angles in effect afterwards.
// A dt that is not positive and finite returns ErrInvalidDt in every mode and changes nothing
// beyond latched mode and skill requests. If the new pose cannot be reached the error wraps kinematics.ErrOutOfReach, the previous
// angles are returned and nothing is written to the actuator.
func (c *Controller) Tick(ctx context.Context, dt float64) (kinematics.JointAngles, error) {
	c.inputMu.Lock()
	cmd, imu, haveIMU := c.cmd, c.imu, c.haveIMU
	requested, modeRequest := c.requested, c.modeRequest
	pendingSkill, clearSkill := c.pendingSkill, c.clearSkill
	c.modeRequest, c.pendingSkill, c.clearSkill = false, nil, false
	c.inputMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if clearSkill && c.skill != nil {
		c.logger.Infof("skill %s cancelled", c.skill.Name())
		c.skill = nil
	}
	if modeRequest {
		c.switchMode(requested)
	}
	if pendingSkill != nil {
		c.switchMode(pendingSkill.RequiredMode())
		c.skill = pendingSkill
		c.skill.Begin(&c.pose, imu)
	}

	if err := gait.CheckDt(dt); err != nil {
		c.lastErr = err
		return c.angles, err
	}

	if c.current == nil {
		c.ticks++
		if c.mode == motion.Deactivated {
			return c.angles, nil
		}
		return c.solveAndWrite(ctx)
	}

	if c.skill != nil {
		c.skill.Execute(&c.pose, c.current, imu, dt)
		if c.skill.IsComplete() {
			c.logger.Infof("skill %s complete", c.skill.Name())
			c.skill = nil
		}
	} else {
		c.current.HandleCommand(cmd)
	}
	if haveIMU {
		c.current.UpdateIMUOffsets(imu.Roll, imu.Pitch)
	}
	if err := c.current.Step(&c.pose, dt); err != nil {
		c.lastErr = err
		return c.angles, err
	}
	c.ticks++
	return c.solveAndWrite(ctx)
}

func (c *Controller) solveAndWrite(ctx context.Context) (kinematics.JointAngles, error) {
	angles, err := c.solver.Solve(&c.pose)
	if err != nil {
		c.lastErr = err
		c.logger.Debugw("holding last joint angles", "error", err)
		return c.angles, err
	}
	c.angles, c.haveAngles = angles, true
	c.lastErr = nil

	if c.act == nil {
		return angles, nil
	}
	servo := actuator.ServoAngles(angles, c.directions)
	if c.haveWritten && !actuator.Changed(c.written, servo, actuator.DefaultChangeThresholdDeg) {
		return angles, nil
	}
	if err := c.act.SetAngles(ctx, servo); err != nil {
		c.lastErr = errors.Wrap(err, "failed to write joint angles")
		return angles, c.lastErr
	}
	c.written, c.haveWritten = servo, true
	return angles, nil
}

func (c *Controller) switchMode(mode motion.Mode) {
	if mode == c.mode {
		return
	}
	c.logger.Infof("mode %s -> %s", c.mode, mode)
	if c.current != nil {
		c.current.End()
	}
	c.mode = mode
	c.current = c.states[mode]
	if c.current != nil {
		c.current.Begin()
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() motion.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Pose returns a copy of the body pose.
func (c *Controller) Pose() body.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose
}

// Geometry returns the robot geometry the controller was built with.
func (c *Controller) Geometry() kinematics.Geometry {
	return c.geometry
}

// Telemetry returns a snapshot of the controller.
func (c *Controller) Telemetry() Telemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Telemetry{
		Mode:        c.mode,
		Pose:        c.pose,
		Orientation: c.pose.Orientation().Quaternion(),
		Ticks:       c.ticks,
		LastError:   c.lastErr,
	}
	if c.haveAngles {
		t.Angles = c.angles.Degrees()
	}
	if c.skill != nil {
		t.Skill = c.skill.Name()
	}
	if walk, ok := c.current.(*motion.WalkState); ok && c.mode == motion.Walk {
		g := walk.Gait()
		t.Gait = g.Name()
		t.Parameters = g.Parameters()
		if periodic, ok := g.(*gait.Periodic); ok {
			t.Phase = periodic.InternalState()
		}
	}
	return t
}
