package motion

import (
	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

// RestState eases the body down onto its rest pose and ignores commands.
type RestState struct {
	blender
}

// NewRest returns the resting motion state.
func NewRest(g kinematics.Geometry, opts Options, logger logging.Logger) *RestState {
	s := &RestState{blender: newBlender("rest", Rest, g, opts, logger)}
	s.target = g.RestPose()
	return s
}

// Begin implements State.
func (s *RestState) Begin() {
	s.target = s.geometry.RestPose()
	s.blender.Begin()
}

// Step implements State.
func (s *RestState) Step(pose *body.Pose, dt float64) error {
	if err := gait.CheckDt(dt); err != nil {
		return err
	}
	s.blendBody(pose)
	s.updateFeet(pose)
	return nil
}

// StandState maps the command onto a static target pose and eases the body toward it.
type StandState struct {
	blender
}

// NewStand returns the standing motion state.
func NewStand(g kinematics.Geometry, opts Options, logger logging.Logger) *StandState {
	return &StandState{blender: newBlender("stand", Stand, g, opts, logger)}
}

// HandleCommand implements State.
func (s *StandState) HandleCommand(cmd input.Command) {
	g := s.geometry
	s.target.Y = s.heightFor(cmd)
	s.target.Roll = cmd.RX * g.MaxRoll()
	s.target.Pitch = cmd.RY * g.MaxPitch()
	s.target.X = cmd.LY * g.MaxBodyShiftX()
	s.target.Z = cmd.LX * g.MaxBodyShiftZ()
	s.target.Feet = g.DefaultFeet()
}

// Step implements State.
func (s *StandState) Step(pose *body.Pose, dt float64) error {
	if err := gait.CheckDt(dt); err != nil {
		return err
	}
	s.blendBody(pose)
	s.updateFeet(pose)
	return nil
}

// GaitFactory builds a fresh gait each time walking begins.
type GaitFactory func() gait.State

// WalkState drives a gait. The gait writes feet and any body shift straight into the pose;
// the walk state only eases body height and pitch toward the commanded values.
type WalkState struct {
	blender
	newGait GaitFactory
	gait    gait.State
	cmd     input.Command
}

// NewWalk returns the walking motion state.
func NewWalk(g kinematics.Geometry, newGait GaitFactory, opts Options, logger logging.Logger) *WalkState {
	s := &WalkState{
		blender: newBlender("walk", Walk, g, opts, logger),
		newGait: newGait,
	}
	s.gait = newGait()
	return s
}

// Begin starts a new gait at phase zero.
func (s *WalkState) Begin() {
	s.blender.Begin()
	s.gait = s.newGait()
	s.gait.Begin()
}

// End implements State.
func (s *WalkState) End() {
	s.gait.End()
	s.blender.End()
}

// HandleCommand implements State. Walking keeps the body between its default and maximum
// height so a full step lift stays inside the legs' reach.
func (s *WalkState) HandleCommand(cmd input.Command) {
	g := s.geometry
	s.cmd = cmd
	s.target.Y = g.DefaultBodyHeight() + utils.Clamp(cmd.H, 0, 1)*(g.MaxBodyHeight()-g.DefaultBodyHeight())
	s.target.Pitch = cmd.RY * g.MaxPitch()
}

// Step implements State.
func (s *WalkState) Step(pose *body.Pose, dt float64) error {
	if err := gait.CheckDt(dt); err != nil {
		return err
	}
	if err := s.gait.Step(pose, s.cmd, dt); err != nil {
		return err
	}
	f := s.opts.SmoothingFactor
	_, pitch := s.targetRollPitch()
	pose.Y = utils.Lerp(pose.Y, s.target.Y, f)
	pose.Pitch = utils.Lerp(pose.Pitch, pitch, f)
	s.target.Feet = pose.Feet
	return nil
}

// Gait returns the active gait.
func (s *WalkState) Gait() gait.State {
	return s.gait
}
