package skill

import (
	"math"
	"time"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
	"github.com/spotmicro/locomotion/utils"
)

const (
	walkSpeed         = 0.8
	walkTimeout       = 10 * time.Second
	distanceTolerance = 0.05 // meters
)

// WalkConfig configures a Walk.
type WalkConfig struct {
	// Distance to cover in meters. Negative walks backwards.
	Distance float64
	// Speed is the stick deflection used for the walk, in (0, 1].
	Speed   float64
	Timeout time.Duration
}

// Walk walks straight ahead for an estimated distance. There is no odometry, so the distance
// is integrated from the gait's commanded stance speed.
type Walk struct {
	cfg    WalkConfig
	logger logging.Logger

	active   bool
	complete bool
	timedOut bool

	startHeading float64
	haveHeading  bool
	traveled     float64
	elapsed      float64
}

type gaitDriver interface {
	Gait() gait.State
}

// NewWalk returns a walk skill.
func NewWalk(cfg WalkConfig, logger logging.Logger) *Walk {
	if cfg.Speed <= 0 || cfg.Speed > 1 {
		cfg.Speed = walkSpeed
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = walkTimeout
	}
	return &Walk{cfg: cfg, logger: logger.Sublogger("walk")}
}

// Name implements Skill.
func (w *Walk) Name() string {
	return "walk"
}

// RequiredMode implements Skill.
func (w *Walk) RequiredMode() motion.Mode {
	return motion.Walk
}

// Begin implements Skill.
func (w *Walk) Begin(pose *body.Pose, p Peripherals) {
	w.Reset()
	w.active = true
	w.startHeading, w.haveHeading = p.Heading()
	w.logger.Infow("starting", "distance", w.cfg.Distance, "speed", w.cfg.Speed)
}

// Execute implements Skill.
func (w *Walk) Execute(pose *body.Pose, current motion.State, p Peripherals, dt float64) {
	if !w.active || w.complete {
		return
	}
	if dt > 0 {
		w.elapsed += dt
		w.traveled += w.bodySpeed(current) * dt
	}

	target := math.Abs(w.cfg.Distance)
	switch {
	case w.traveled >= target-distanceTolerance:
		w.complete = true
		w.logger.Infow("completed", "traveled", w.traveled, "drift", w.drift(p))
	case w.elapsed > w.cfg.Timeout.Seconds():
		w.complete, w.timedOut = true, true
		w.logger.Warnw("timed out", "traveled", w.traveled, "target", target)
	}
	if current == nil {
		return
	}
	if w.complete {
		current.HandleCommand(input.Command{H: 0.5})
		return
	}
	ly := w.cfg.Speed
	if w.cfg.Distance < 0 {
		ly = -ly
	}
	current.HandleCommand(input.Command{LY: ly, H: 0.5, S: w.cfg.Speed})
}

// bodySpeed is how fast stance feet move backwards under the active gait, in m/s.
func (w *Walk) bodySpeed(current motion.State) float64 {
	driver, ok := current.(gaitDriver)
	if !ok {
		return 0
	}
	periodic, ok := driver.Gait().(*gait.Periodic)
	if !ok {
		return 0
	}
	params := periodic.Parameters()
	if params.StepVelocity <= 0 {
		return 0
	}
	return math.Hypot(params.StepX, params.StepZ) * periodic.Pattern().SwingStandRatio
}

func (w *Walk) drift(p Peripherals) float64 {
	heading, ok := p.Heading()
	if !ok || !w.haveHeading {
		return 0
	}
	return utils.AngleDiffDeg(w.startHeading, heading)
}

// IsComplete implements Skill.
func (w *Walk) IsComplete() bool {
	return w.complete
}

// TimedOut reports whether the walk ended on its timeout.
func (w *Walk) TimedOut() bool {
	return w.timedOut
}

// Traveled is the estimated distance covered so far, in meters.
func (w *Walk) Traveled() float64 {
	return w.traveled
}

// Reset implements Skill.
func (w *Walk) Reset() {
	w.active, w.complete, w.timedOut = false, false, false
	w.haveHeading = false
	w.startHeading, w.traveled, w.elapsed = 0, 0, 0
}
