// Package main runs the locomotion pipeline against a fake actuator and reports the result.
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/spotmicro/locomotion/config"
	"github.com/spotmicro/locomotion/input"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/motion"
)

const (
	flagConfig = "config"
	flagRobot  = "robot"
	flagGait   = "gait"
	flagMode   = "mode"
	flagTicks  = "ticks"
	flagSkill  = "skill"
	flagDebug  = "debug"
	flagLevel  = "log-level"
	flagLX     = "lx"
	flagLY     = "ly"
	flagRX     = "rx"
	flagRY     = "ry"
	flagHeight = "height"
	flagSpeed  = "speed"
	flagLift   = "lift"
)

func main() {
	logger := logging.NewLogger("locomotion-sim")

	app := &cli.App{
		Name:  "locomotion-sim",
		Usage: "run the quadruped locomotion pipeline without hardware",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLevel,
				Value: "info",
				Usage: "debug, info, warn or error",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.LevelFromString(c.String(flagLevel))
			if err != nil {
				return err
			}
			if c.Bool(flagDebug) {
				level = logging.DEBUG
			}
			logger.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a scripted command for a number of ticks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
					},
					&cli.StringFlag{Name: flagRobot, Usage: "robot profile, overrides the config"},
					&cli.StringFlag{Name: flagGait, Usage: "trot or walk, overrides the config"},
					&cli.StringFlag{Name: flagMode, Value: motion.Walk.String(), Usage: "rest, stand, walk or idle"},
					&cli.IntFlag{Name: flagTicks, Value: 250, Usage: "number of ticks to run"},
					&cli.StringFlag{Name: flagSkill, Usage: "spin, spin-cw or walk:<meters>"},
					&cli.Float64Flag{Name: flagLX, Usage: "left stick X, strafe"},
					&cli.Float64Flag{Name: flagLY, Value: 0.5, Usage: "left stick Y, forward"},
					&cli.Float64Flag{Name: flagRX, Usage: "right stick X, turn or roll"},
					&cli.Float64Flag{Name: flagRY, Usage: "right stick Y, pitch"},
					&cli.Float64Flag{Name: flagHeight, Value: 0.5, Usage: "body height in [0, 1]"},
					&cli.Float64Flag{Name: flagSpeed, Value: 1, Usage: "gait speed in [0, 1]"},
					&cli.Float64Flag{Name: flagLift, Usage: "extra step height in [0, 1]"},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
			{
				Name:  "profiles",
				Usage: "list the known robot profiles",
				Action: func(c *cli.Context) error {
					return writeProfiles(c.App.Writer)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context, logger logging.Logger) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path, logger)
		if err != nil {
			return err
		}
		cfg = *read
	}
	if c.IsSet(flagRobot) {
		cfg.Robot = c.String(flagRobot)
	}
	if c.IsSet(flagGait) {
		cfg.Gait = c.String(flagGait)
	}
	if err := cfg.Validate("config"); err != nil {
		return err
	}
	mode, err := motion.ModeFromString(c.String(flagMode))
	if err != nil {
		return err
	}

	opts := simOptions{
		Config: cfg,
		Mode:   mode,
		Ticks:  c.Int(flagTicks),
		Skill:  c.String(flagSkill),
		Command: input.Command{
			LX: c.Float64(flagLX),
			LY: c.Float64(flagLY),
			RX: c.Float64(flagRX),
			RY: c.Float64(flagRY),
			H:  c.Float64(flagHeight),
			S:  c.Float64(flagSpeed),
			S1: c.Float64(flagLift),
		},
	}
	result, err := runSim(c.Context, opts, logger)
	if err != nil {
		return err
	}
	return writeReport(c.App.Writer, result)
}
