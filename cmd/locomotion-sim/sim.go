package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/components/actuator/fake"
	"github.com/spotmicro/locomotion/config"
	"github.com/spotmicro/locomotion/control"
	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
	"github.com/spotmicro/locomotion/skill"
	"github.com/spotmicro/locomotion/utils"
)

type simOptions struct {
	Config  config.Config
	Mode    motion.Mode
	Command input.Command
	Ticks   int
	// Skill is "", "spin", "spin-cw" or "walk:<meters>".
	Skill string
}

type simResult struct {
	Ticks      int
	Writes     int
	OutOfReach int
	Heading    float64
	Telemetry  control.Telemetry
	// TickMicros is the wall time of each tick.
	TickMicros []float64
}

func parseSkill(name string, logger logging.Logger) (skill.Skill, error) {
	switch {
	case name == "":
		return nil, nil
	case name == "spin":
		return skill.NewSpin(skill.SpinConfig{}, logger), nil
	case name == "spin-cw":
		return skill.NewSpin(skill.SpinConfig{Clockwise: true}, logger), nil
	case strings.HasPrefix(name, "walk:"):
		distance, err := strconv.ParseFloat(strings.TrimPrefix(name, "walk:"), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad walk distance in %q", name)
		}
		return skill.NewWalk(skill.WalkConfig{Distance: distance}, logger), nil
	default:
		return nil, errors.Errorf("unknown skill %q, expected spin, spin-cw or walk:<meters>", name)
	}
}

// simulatedHeading integrates the commanded turn of the active gait. Stance feet sweep about
// the body at StepAngle*TurnRate*SwingStandRatio radians per second, and the body turns the
// opposite way.
func simulatedHeading(heading float64, t control.Telemetry, tunables gait.Tunables, dt float64) float64 {
	if t.Mode != motion.Walk || t.Parameters.StepVelocity <= 0 {
		return heading
	}
	ratio := gait.TrotPattern().SwingStandRatio
	if t.Gait == gait.WalkName {
		ratio = gait.WalkPattern().SwingStandRatio
	}
	rate := utils.RadToDeg(t.Parameters.StepAngle * tunables.TurnRate * ratio)
	heading -= rate * dt
	for heading < 0 {
		heading += 360
	}
	for heading >= 360 {
		heading -= 360
	}
	return heading
}

func runSim(ctx context.Context, opts simOptions, logger logging.Logger) (*simResult, error) {
	if opts.Ticks <= 0 {
		return nil, errors.Errorf("ticks must be positive, got %d", opts.Ticks)
	}
	act := fake.NewActuator()
	c, err := control.NewController(&opts.Config, act, logger)
	if err != nil {
		return nil, err
	}
	s, err := parseSkill(opts.Skill, logger)
	if err != nil {
		return nil, err
	}

	dt := opts.Config.Dt()
	result := &simResult{Ticks: opts.Ticks, TickMicros: make([]float64, 0, opts.Ticks)}
	c.SetMode(opts.Mode)
	c.SetCommand(opts.Command)
	c.SetIMU(control.IMUReading{HeadingValid: true})
	if s != nil {
		c.StartSkill(s)
	}

	for i := 0; i < opts.Ticks; i++ {
		start := time.Now()
		_, err := c.Tick(ctx, dt)
		result.TickMicros = append(result.TickMicros, float64(time.Since(start).Microseconds()))
		switch {
		case err == nil:
		case kinematics.IsOutOfReach(err):
			result.OutOfReach++
		default:
			return nil, errors.Wrapf(err, "tick %d", i)
		}
		result.Heading = simulatedHeading(result.Heading, c.Telemetry(), opts.Config.Tunables, dt)
		c.SetIMU(control.IMUReading{HeadingDeg: result.Heading, HeadingValid: true})
	}
	result.Writes = len(act.Writes())
	result.Telemetry = c.Telemetry()
	return result, nil
}

func writeReport(w io.Writer, r *simResult) error {
	legs := table.NewWriter()
	legs.SetOutputMirror(w)
	legs.SetTitle("Legs")
	legs.AppendHeader(table.Row{"Leg", "Abduction", "Hip", "Knee", "Foot"})
	for leg := 0; leg < body.NumLegs; leg++ {
		foot := r.Telemetry.Pose.Feet[leg]
		legs.AppendRow(table.Row{
			body.LegName(leg),
			fmt.Sprintf("%.2f", r.Telemetry.Angles[3*leg]),
			fmt.Sprintf("%.2f", r.Telemetry.Angles[3*leg+1]),
			fmt.Sprintf("%.2f", r.Telemetry.Angles[3*leg+2]),
			fmt.Sprintf("X:%.4f, Y:%.4f, Z:%.4f", foot.X, foot.Y, foot.Z),
		})
	}
	legs.Render()

	mean, err := stats.Mean(r.TickMicros)
	if err != nil {
		return err
	}
	p99, err := stats.Percentile(r.TickMicros, 99)
	if err != nil {
		return err
	}
	maxTick, err := stats.Max(r.TickMicros)
	if err != nil {
		return err
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Run")
	summary.AppendRows([]table.Row{
		{"Mode", r.Telemetry.Mode},
		{"Pose", r.Telemetry.Pose.String()},
		{"Gait", r.Telemetry.Gait},
		{"Phase", fmt.Sprintf("%d (%.2f)", r.Telemetry.Phase.Phase, r.Telemetry.Phase.PhaseTime)},
		{"Heading", fmt.Sprintf("%.1f", r.Heading)},
		{"Ticks", r.Ticks},
		{"Actuator writes", r.Writes},
		{"Out of reach", r.OutOfReach},
		{"Tick mean (us)", fmt.Sprintf("%.1f", mean)},
		{"Tick p99 (us)", fmt.Sprintf("%.1f", p99)},
		{"Tick max (us)", fmt.Sprintf("%.1f", maxTick)},
	})
	summary.Render()
	return nil
}

func writeProfiles(w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Profile", "Geometry", "Body height", "Max step"})
	for _, name := range kinematics.ProfileNames() {
		g, err := kinematics.ProfileNamed(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{
			name,
			g.String(),
			fmt.Sprintf("%.4f to %.4f", g.MinBodyHeight(), g.MaxBodyHeight()),
			fmt.Sprintf("%.4f", g.MaxStepLength()),
		})
	}
	t.Render()
	return nil
}
