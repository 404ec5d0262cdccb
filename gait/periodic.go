package gait

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

const (
	// phaseEpsilon absorbs rounding when the phase clock lands on a boundary.
	phaseEpsilon = 1e-6
	// liftClearance keeps a lifted foot this far beyond the leg's minimum reach, as a factor.
	liftClearance = 1.1
)

// Pattern is the fixed contact schedule of a periodic gait.
type Pattern struct {
	Name string
	// Contact[leg][phase] is true while the leg is on the ground.
	Contact [body.NumLegs][]bool
	// Shifts are body shift targets for each pair of phases, as fractions of the maximum
	// forward and lateral body shift. Only used by gaits with more than four phases.
	Shifts [][2]float64
	// PhaseSpeedFactor is how many phases pass per second at full step velocity.
	PhaseSpeedFactor float64
	// SwingStandRatio scales stance motion so a leg's total stance travel cancels one swing.
	SwingStandRatio float64
}

// Phases is the number of phases in one gait cycle.
func (p Pattern) Phases() int {
	return len(p.Contact[0])
}

func contactRow(flags ...int) []bool {
	row := make([]bool, len(flags))
	for i, f := range flags {
		row[i] = f != 0
	}
	return row
}

// TrotPattern is the four phase trot: diagonal pairs swing together.
func TrotPattern() Pattern {
	return Pattern{
		Name: TrotName,
		Contact: [body.NumLegs][]bool{
			contactRow(1, 0, 1, 1),
			contactRow(1, 1, 1, 0),
			contactRow(1, 1, 1, 0),
			contactRow(1, 0, 1, 1),
		},
		PhaseSpeedFactor: 6,
		SwingStandRatio:  1.0 / 3,
	}
}

// WalkPattern is the eight phase walk: one leg swings at a time and the body leans away from it.
func WalkPattern() Pattern {
	return Pattern{
		Name: WalkName,
		Contact: [body.NumLegs][]bool{
			contactRow(1, 0, 1, 1, 1, 1, 1, 1),
			contactRow(1, 1, 1, 1, 1, 0, 1, 1),
			contactRow(1, 1, 1, 1, 1, 1, 1, 0),
			contactRow(1, 1, 1, 0, 1, 1, 1, 1),
		},
		Shifts: [][2]float64{
			{-0.05, -0.2},
			{0.25, 0.2},
			{-0.05, 0.2},
			{0.25, -0.2},
		},
		PhaseSpeedFactor: 4,
		SwingStandRatio:  1.0 / 7,
	}
}

// InternalState is the phase clock of a periodic gait.
type InternalState struct {
	Phase     int     `json:"phase"`
	PhaseTime float64 `json:"phase_time"`
}

// Periodic drives a contact schedule. Stance feet slide against the direction of travel with
// their height pinned to the ground, swing feet advance along a half sine lift.
type Periodic struct {
	base
	pattern  Pattern
	tunables Tunables
	defaults body.Feet
	mounts   [body.NumLegs]r3.Vector

	state    InternalState
	advances int
}

// NewPeriodic returns a periodic gait starting at phase zero.
func NewPeriodic(pattern Pattern, g kinematics.Geometry, tunables Tunables, logger logging.Logger) *Periodic {
	return &Periodic{
		base:     newBase(pattern.Name, g, logger),
		pattern:  pattern,
		tunables: tunables,
		defaults: g.DefaultFeet(),
		mounts:   g.MountOffsets(),
	}
}

// NewTrot returns the four phase trot.
func NewTrot(g kinematics.Geometry, tunables Tunables, logger logging.Logger) *Periodic {
	return NewPeriodic(TrotPattern(), g, tunables, logger)
}

// NewWalk returns the eight phase walk.
func NewWalk(g kinematics.Geometry, tunables Tunables, logger logging.Logger) *Periodic {
	return NewPeriodic(WalkPattern(), g, tunables, logger)
}

// InternalState returns the phase clock.
func (p *Periodic) InternalState() InternalState {
	return p.state
}

// Advances is the number of phase changes since construction.
func (p *Periodic) Advances() int {
	return p.advances
}

// Pattern returns the contact schedule.
func (p *Periodic) Pattern() Pattern {
	return p.pattern
}

// InContact reports whether a leg is on the ground in the current phase.
func (p *Periodic) InContact(leg int) bool {
	return p.pattern.Contact[leg][p.state.Phase]
}

// Step implements State.
func (p *Periodic) Step(pose *body.Pose, cmd input.Command, dt float64) error {
	if err := CheckDt(dt); err != nil {
		return err
	}
	p.mapCommand(cmd)
	p.updatePhase(dt)
	p.updateBodyPosition(pose, dt)
	for leg := range pose.Feet {
		if p.InContact(leg) {
			p.stance(pose, leg, dt)
		} else {
			p.swing(pose, leg, dt)
		}
	}
	return nil
}

func (p *Periodic) updatePhase(dt float64) {
	p.state.PhaseTime += dt * p.pattern.PhaseSpeedFactor * p.params.StepVelocity
	// Carry the remainder into the next phase.
	for p.state.PhaseTime >= 1-phaseEpsilon {
		p.state.PhaseTime = math.Max(p.state.PhaseTime-1, 0)
		p.state.Phase = (p.state.Phase + 1) % p.pattern.Phases()
		p.advances++
		p.logger.Debugw("phase", "phase", p.state.Phase, "advances", p.advances)
	}
}

func (p *Periodic) updateBodyPosition(pose *body.Pose, dt float64) {
	if p.pattern.Phases() <= 4 || len(p.pattern.Shifts) == 0 {
		return
	}
	shift := p.pattern.Shifts[(p.state.Phase/2)%len(p.pattern.Shifts)]
	targetX := shift[0] * p.geometry.MaxBodyShiftX()
	targetZ := shift[1] * p.geometry.MaxBodyShiftZ()
	pose.X += (targetX - pose.X) * dt * p.tunables.ShiftRate
	pose.Z += (targetZ - pose.Z) * dt * p.tunables.ShiftRate
}

// footStep is the horizontal step of one foot: the commanded translation plus the tangent of
// the foot's default position about the vertical axis for turning.
func (p *Periodic) footStep(leg int) (x, z float64) {
	turn := p.params.StepAngle * p.tunables.TurnRate
	def := p.defaults[leg]
	return p.params.StepX + turn*def.Z, p.params.StepZ - turn*def.X
}

func (p *Periodic) stance(pose *body.Pose, leg int, dt float64) {
	x, z := p.footStep(leg)
	ratio := p.pattern.SwingStandRatio
	foot := &pose.Feet[leg]
	foot.X -= x * dt * ratio
	foot.Y = p.defaults[leg].Y
	foot.Z -= z * dt * ratio
}

func (p *Periodic) swing(pose *body.Pose, leg int, dt float64) {
	x, z := p.footStep(leg)
	def := p.defaults[leg]
	foot := &pose.Feet[leg]

	dx, dz := x*dt, z*dt
	if math.Abs(x) < p.tunables.StepThreshold {
		dx = (def.X - foot.X) * dt * p.tunables.RecoveryRate
	}
	if math.Abs(z) < p.tunables.StepThreshold {
		dz = (def.Z - foot.Z) * dt * p.tunables.RecoveryRate
	}

	foot.X += dx
	foot.Z += dz
	foot.Y = def.Y + math.Sin(p.state.PhaseTime*math.Pi)*p.swingLift(pose, leg)
}

// swingLift is the step height, lowered while the body is too low for the leg to fold that
// far. This happens when walking starts from the rest pose.
func (p *Periodic) swingLift(pose *body.Pose, leg int) float64 {
	g := p.geometry
	foot := pose.Feet[leg]
	out := body.Side(leg) * (foot.Z - pose.Z - p.mounts[leg].Z)

	// Shortest drop below the mount that keeps the femur and tibia off their fold limit.
	along := g.CoxaOffset + g.MinLegReach()*liftClearance
	minDrop := math.Sqrt(math.Max(along*along+g.Coxa*g.Coxa-out*out, 0))
	// A tilted body brings one mount closer to the ground.
	tilt := g.BodyLength/2*math.Sin(utils.DegToRad(math.Abs(pose.Pitch))) +
		(g.BodyWidth/2+g.Coxa)*math.Sin(utils.DegToRad(math.Abs(pose.Roll)))

	room := pose.Y - p.defaults[leg].Y - minDrop - tilt
	return utils.Clamp(p.params.StepHeight, 0, math.Max(room, 0))
}
