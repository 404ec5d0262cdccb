// Package motion smooths body level pose changes. A motion State owns a target pose and every
// tick eases the live pose toward it; foot positions are copied rather than smoothed because
// they already come from a gait's incremental computation.
package motion

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

// ErrInvalidDt is returned when a step is asked to advance by a non-positive interval.
var ErrInvalidDt = gait.ErrInvalidDt

// Mode is the operating mode of the robot.
type Mode int

// Modes. Deactivated, Idle and Calibration have no motion State; the controller holds the
// pose still in those modes.
const (
	Deactivated Mode = iota
	Idle
	Calibration
	Rest
	Stand
	Walk
)

var modeNames = map[Mode]string{
	Deactivated: "deactivated",
	Idle:        "idle",
	Calibration: "calibration",
	Rest:        "rest",
	Stand:       "stand",
	Walk:        "walk",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ModeFromString parses a mode name.
func ModeFromString(s string) (Mode, error) {
	for mode, name := range modeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return Deactivated, errors.Errorf("unknown mode %q", s)
}

// State is one motion mode.
type State interface {
	Name() string
	Mode() Mode
	// Begin is called when the controller switches to this state.
	Begin()
	// End is called when the controller switches away from this state.
	End()
	// HandleCommand updates the target pose from a command.
	HandleCommand(cmd input.Command)
	// Step eases pose toward the target. A non-positive dt returns ErrInvalidDt and leaves
	// pose untouched.
	Step(pose *body.Pose, dt float64) error
	// UpdateIMUOffsets stores roll and pitch compensation, given in radians.
	UpdateIMUOffsets(roll, pitch float64)
	// Target returns a copy of the target pose.
	Target() body.Pose
}

// DefaultSmoothingFactor is the fraction of the remaining distance covered per tick.
const DefaultSmoothingFactor = 0.03

// DefaultFootTolerance is how far feet may differ from the target before they are replaced.
const DefaultFootTolerance = 1e-4

// Options configure the blending shared by every motion state.
type Options struct {
	SmoothingFactor float64
	// Stabilize subtracts the IMU offsets from the target roll and pitch.
	Stabilize     bool
	FootTolerance float64
}

// DefaultOptions returns the reference blending options.
func DefaultOptions() Options {
	return Options{
		SmoothingFactor: DefaultSmoothingFactor,
		FootTolerance:   DefaultFootTolerance,
	}
}

// blender is embedded by every motion state.
type blender struct {
	name     string
	mode     Mode
	geometry kinematics.Geometry
	opts     Options
	logger   logging.Logger

	target body.Pose
	// IMU compensation in degrees.
	rollOffset  float64
	pitchOffset float64
}

func newBlender(name string, mode Mode, g kinematics.Geometry, opts Options, logger logging.Logger) blender {
	if opts.SmoothingFactor <= 0 || opts.SmoothingFactor > 1 {
		opts.SmoothingFactor = DefaultSmoothingFactor
	}
	if opts.FootTolerance <= 0 {
		opts.FootTolerance = DefaultFootTolerance
	}
	return blender{
		name:     name,
		mode:     mode,
		geometry: g,
		opts:     opts,
		logger:   logger.Sublogger(name),
		target:   g.DefaultPose(),
	}
}

func (b *blender) Name() string {
	return b.name
}

func (b *blender) Mode() Mode {
	return b.mode
}

func (b *blender) Begin() {
	b.logger.Infof("starting %s", b.name)
}

func (b *blender) End() {
	b.logger.Infof("ending %s", b.name)
}

func (b *blender) HandleCommand(cmd input.Command) {}

func (b *blender) Target() body.Pose {
	return b.target
}

func (b *blender) UpdateIMUOffsets(roll, pitch float64) {
	b.rollOffset = utils.RadToDeg(roll)
	b.pitchOffset = utils.RadToDeg(pitch)
}

func (b *blender) targetRollPitch() (roll, pitch float64) {
	roll, pitch = b.target.Roll, b.target.Pitch
	if b.opts.Stabilize {
		roll -= b.rollOffset
		pitch -= b.pitchOffset
	}
	maxRoll, maxPitch := b.geometry.MaxRoll(), b.geometry.MaxPitch()
	return utils.Clamp(roll, -maxRoll, maxRoll), utils.Clamp(pitch, -maxPitch, maxPitch)
}

// blendBody eases translation and orientation toward the target.
func (b *blender) blendBody(pose *body.Pose) {
	f := b.opts.SmoothingFactor
	roll, pitch := b.targetRollPitch()
	pose.X = utils.Lerp(pose.X, b.target.X, f)
	pose.Y = utils.Lerp(pose.Y, b.target.Y, f)
	pose.Z = utils.Lerp(pose.Z, b.target.Z, f)
	pose.Roll = utils.Lerp(pose.Roll, roll, f)
	pose.Pitch = utils.Lerp(pose.Pitch, pitch, f)
	pose.Yaw = utils.Lerp(pose.Yaw, b.target.Yaw, f)
}

// updateFeet copies the target feet when they differ beyond tolerance.
func (b *blender) updateFeet(pose *body.Pose) {
	if !pose.Feet.AlmostEqual(b.target.Feet, b.opts.FootTolerance) {
		pose.UpdateFeet(b.target.Feet)
	}
}

func (b *blender) heightFor(cmd input.Command) float64 {
	return b.geometry.MinBodyHeight() + utils.Clamp(cmd.H, 0, 1)*b.geometry.BodyHeightRange()
}
