// Package gait turns operator commands into foot trajectories. A gait State is selected by the
// surrounding controller; Begin and End only log, so each State is fully initialized by its
// constructor and a fresh State must be built to restart a gait from phase zero.
package gait

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

// ErrInvalidDt is returned when a step is asked to advance by a non-positive interval.
var ErrInvalidDt = errors.New("tick interval must be positive")

// DefaultDt is the tick interval of the 50 Hz reference rate, in seconds.
const DefaultDt = 0.02

// Gait names accepted by New.
const (
	IdleName  = "idle"
	RestName  = "rest"
	StandName = "stand"
	TrotName  = "trot"
	WalkName  = "walk"
)

// Parameters are derived from the latest Command on every tick.
type Parameters struct {
	StepHeight   float64 `json:"step_height"`
	StepX        float64 `json:"step_x"`
	StepZ        float64 `json:"step_z"`
	StepAngle    float64 `json:"step_angle"`
	StepVelocity float64 `json:"step_velocity"`
	StepDepth    float64 `json:"step_depth"`
}

// MapCommand derives gait parameters from a command.
func MapCommand(g kinematics.Geometry, cmd input.Command) Parameters {
	return Parameters{
		StepHeight:   math.Min(g.DefaultStepHeight()*(1+cmd.S1), g.MaxStepHeight()),
		StepX:        cmd.LY * g.MaxStepLength(),
		StepZ:        -cmd.LX * g.MaxStepLength(),
		StepAngle:    cmd.RX,
		StepVelocity: cmd.S,
		StepDepth:    g.DefaultStepDepth(),
	}
}

// State is one gait of the state machine.
type State interface {
	Name() string
	// Begin is called when the controller switches to this state.
	Begin()
	// End is called when the controller switches away from this state.
	End()
	// Step advances the gait by dt seconds and writes the result into pose. A non-positive dt
	// returns ErrInvalidDt and leaves pose untouched.
	Step(pose *body.Pose, cmd input.Command, dt float64) error
	// Parameters returns the parameters mapped on the last Step.
	Parameters() Parameters
}

// Tunables are the empirically chosen constants of the periodic gaits.
type Tunables struct {
	// StepThreshold is the step component below which a swinging foot recovers toward its
	// default position instead of stepping.
	StepThreshold float64 `json:"step_threshold"`
	// RecoveryRate scales how fast a swinging foot eases back to its default position.
	RecoveryRate float64 `json:"recovery_rate"`
	// ShiftRate scales how fast the body moves toward its per-phase shift target.
	ShiftRate float64 `json:"shift_rate"`
	// TurnRate converts the turn axis into a yaw step, in radians per phase.
	TurnRate float64 `json:"turn_rate"`
}

// DefaultTunables returns the default gait constants.
func DefaultTunables() Tunables {
	return Tunables{
		StepThreshold: 0.01,
		RecoveryRate:  8,
		ShiftRate:     4,
		TurnRate:      0.5,
	}
}

// Validate ensures the tunables can drive a gait.
func (t Tunables) Validate() error {
	if t.StepThreshold < 0 {
		return errors.Errorf("step_threshold cannot be negative, got %v", t.StepThreshold)
	}
	if t.RecoveryRate < 0 || t.ShiftRate < 0 {
		return errors.New("recovery_rate and shift_rate cannot be negative")
	}
	return nil
}

// CheckDt returns ErrInvalidDt unless dt is a positive, finite tick interval.
func CheckDt(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return errors.Wrapf(ErrInvalidDt, "got %v", dt)
	}
	return nil
}

// New builds a gait by name.
func New(name string, g kinematics.Geometry, tunables Tunables, logger logging.Logger) (State, error) {
	switch name {
	case IdleName:
		return NewIdle(g, logger), nil
	case RestName:
		return NewRest(g, logger), nil
	case StandName:
		return NewStand(g, logger), nil
	case TrotName:
		return NewTrot(g, tunables, logger), nil
	case WalkName:
		return NewWalk(g, tunables, logger), nil
	default:
		return nil, errors.Errorf("unknown gait %q", name)
	}
}

// Names lists the gaits New accepts.
func Names() []string {
	return []string{IdleName, RestName, StandName, TrotName, WalkName}
}

// base carries what every gait shares: its geometry, the last mapped parameters and logging.
type base struct {
	name     string
	geometry kinematics.Geometry
	params   Parameters
	logger   logging.Logger
}

func newBase(name string, g kinematics.Geometry, logger logging.Logger) base {
	return base{
		name:     name,
		geometry: g,
		params:   MapCommand(g, input.Command{}),
		logger:   logger.Sublogger(name),
	}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Begin() {
	b.logger.Infof("starting %s gait", b.name)
}

func (b *base) End() {
	b.logger.Infof("ending %s gait", b.name)
}

func (b *base) Parameters() Parameters {
	return b.params
}

func (b *base) mapCommand(cmd input.Command) {
	b.params = MapCommand(b.geometry, cmd)
}

func (p Parameters) String() string {
	return fmt.Sprintf("height=%.4f x=%.4f z=%.4f angle=%.2f velocity=%.2f depth=%.4f",
		p.StepHeight, p.StepX, p.StepZ, p.StepAngle, p.StepVelocity, p.StepDepth)
}

// Idle maps the command and leaves the pose alone.
type Idle struct {
	base
}

// NewIdle returns the no-op gait.
func NewIdle(g kinematics.Geometry, logger logging.Logger) *Idle {
	return &Idle{base: newBase(IdleName, g, logger)}
}

// Step implements State.
func (s *Idle) Step(pose *body.Pose, cmd input.Command, dt float64) error {
	if err := CheckDt(dt); err != nil {
		return err
	}
	s.mapCommand(cmd)
	return nil
}

// Rest parks the body at its minimum height over the default stance.
type Rest struct {
	base
}

// NewRest returns the parking gait.
func NewRest(g kinematics.Geometry, logger logging.Logger) *Rest {
	return &Rest{base: newBase(RestName, g, logger)}
}

// Step implements State. Body shift axes of the command are ignored.
func (s *Rest) Step(pose *body.Pose, cmd input.Command, dt float64) error {
	if err := CheckDt(dt); err != nil {
		return err
	}
	s.mapCommand(cmd)
	*pose = s.geometry.RestPose()
	return nil
}

// Stand maps height, roll, pitch and body shift from the command straight into the pose.
type Stand struct {
	base
}

// NewStand returns the static posing gait.
func NewStand(g kinematics.Geometry, logger logging.Logger) *Stand {
	return &Stand{base: newBase(StandName, g, logger)}
}

// Step implements State.
func (s *Stand) Step(pose *body.Pose, cmd input.Command, dt float64) error {
	if err := CheckDt(dt); err != nil {
		return err
	}
	s.mapCommand(cmd)
	g := s.geometry
	pose.Y = g.MinBodyHeight() + utils.Clamp(cmd.H, 0, 1)*g.BodyHeightRange()
	pose.Roll = cmd.RX * g.MaxRoll()
	pose.Pitch = cmd.RY * g.MaxPitch()
	pose.X = cmd.LY * g.MaxBodyShiftX()
	pose.Z = cmd.LX * g.MaxBodyShiftZ()
	pose.UpdateFeet(g.DefaultFeet())
	return nil
}
