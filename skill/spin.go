package skill

import (
	"fmt"
	"time"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
	"github.com/spotmicro/locomotion/utils"
)

const (
	oneTurn          = 360.0
	headingTolerance = 15.0 // degrees short of the target that still counts as done
	spinSpeed        = 0.75
	spinTimeout      = 30 * time.Second
)

// SpinConfig configures a Spin.
type SpinConfig struct {
	Clockwise bool
	// AngleDeg is how far to turn. Defaults to one full turn.
	AngleDeg float64
	// Timeout ends the spin even if the heading never got there. Elapsed time is the sum of
	// the tick intervals passed to Execute.
	Timeout time.Duration
}

// Spin turns in place by driving the walk state with no translation and a fixed turn rate,
// counting heading change in the commanded direction.
type Spin struct {
	cfg    SpinConfig
	logger logging.Logger

	active   bool
	complete bool
	timedOut bool

	haveLast    bool
	lastHeading float64
	rotated     float64
	elapsed     float64
}

// NewSpin returns a spin skill.
func NewSpin(cfg SpinConfig, logger logging.Logger) *Spin {
	if cfg.AngleDeg <= 0 {
		cfg.AngleDeg = oneTurn
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = spinTimeout
	}
	s := &Spin{cfg: cfg}
	s.logger = logger.Sublogger("spin")
	return s
}

// Name implements Skill.
func (s *Spin) Name() string {
	if s.cfg.Clockwise {
		return "spin clockwise"
	}
	return "spin counter-clockwise"
}

// RequiredMode implements Skill.
func (s *Spin) RequiredMode() motion.Mode {
	return motion.Walk
}

// Begin implements Skill.
func (s *Spin) Begin(pose *body.Pose, p Peripherals) {
	s.Reset()
	s.active = true
	s.lastHeading, s.haveLast = p.Heading()
	s.logger.Infow("starting", "skill", s.Name(), "heading", s.lastHeading, "valid", s.haveLast)
}

// Execute implements Skill.
func (s *Spin) Execute(pose *body.Pose, current motion.State, p Peripherals, dt float64) {
	if !s.active || s.complete {
		return
	}

	heading, ok := p.Heading()
	if !ok {
		s.logger.Debug("no valid heading, continuing rotation")
	} else {
		if s.haveLast {
			delta := utils.AngleDiffDeg(s.lastHeading, heading)
			// Clockwise shows up as a falling heading. Turning back the other way is not undone.
			if s.cfg.Clockwise && delta < 0 {
				s.rotated -= delta
			} else if !s.cfg.Clockwise && delta > 0 {
				s.rotated += delta
			}
		}
		s.lastHeading, s.haveLast = heading, true
	}

	if dt > 0 {
		s.elapsed += dt
	}
	if s.elapsed > s.cfg.Timeout.Seconds() {
		s.complete, s.timedOut = true, true
		s.logger.Warnw("timed out", "skill", s.Name(), "rotated", s.rotated, "target", s.cfg.AngleDeg)
		s.stop(current)
		return
	}
	if s.rotated >= s.cfg.AngleDeg-headingTolerance {
		s.complete = true
		s.logger.Infow("completed", "skill", s.Name(), "rotated", s.rotated)
		s.stop(current)
		return
	}

	if current != nil {
		rx := spinSpeed
		if !s.cfg.Clockwise {
			rx = -rx
		}
		current.HandleCommand(input.Command{H: 0.75, RX: rx, S1: 0.75, S: 0.7})
	}
}

func (s *Spin) stop(current motion.State) {
	if current != nil {
		current.HandleCommand(input.Command{H: 0.75})
	}
}

// IsComplete implements Skill.
func (s *Spin) IsComplete() bool {
	return s.complete
}

// TimedOut reports whether the spin ended on its timeout.
func (s *Spin) TimedOut() bool {
	return s.timedOut
}

// Rotated is the heading change counted so far, in degrees.
func (s *Spin) Rotated() float64 {
	return s.rotated
}

// Reset implements Skill.
func (s *Spin) Reset() {
	s.active, s.complete, s.timedOut = false, false, false
	s.haveLast = false
	s.lastHeading, s.rotated, s.elapsed = 0, 0, 0
}

func (s *Spin) String() string {
	return fmt.Sprintf("%s %.1f/%.1f deg", s.Name(), s.rotated, s.cfg.AngleDeg)
}
