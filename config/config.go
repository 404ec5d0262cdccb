// Package config defines the locomotion core's configuration and how it is read from disk.
package config

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/spotmicro/locomotion/gait"
	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/motion"
)

// NumServos is the number of joints driven by the actuator.
const NumServos = 12

// MaxFrequencyHz is the fastest supported tick rate.
const MaxFrequencyHz = 200

// DefaultFrequencyHz is the tick rate used when none is configured.
const DefaultFrequencyHz = 50

// DefaultServoDirections are the mounting signs of the reference robot's servos, ordered
// leg by leg as abduction, hip, knee.
var DefaultServoDirections = [NumServos]float64{1, -1, -1, -1, -1, -1, 1, -1, -1, -1, -1, -1}

// Config is the full configuration of a locomotion controller.
type Config struct {
	// Robot names a known geometry profile.
	Robot string `json:"robot"`

	// Geometry overrides individual link lengths of the profile, keyed by their JSON names.
	Geometry map[string]interface{} `json:"geometry,omitempty"`

	// Gait is the periodic gait used while walking.
	Gait            string  `json:"gait"`
	SmoothingFactor float64 `json:"smoothing_factor"`
	FrequencyHz     float64 `json:"frequency_hz"`

	// TickSeconds overrides the interval fed to each tick. Zero means 1/FrequencyHz.
	TickSeconds      float64            `json:"tick_seconds,omitempty"`
	IMUStabilization bool               `json:"imu_stabilization"`
	ServoDirections  [NumServos]float64 `json:"servo_directions"`
	Tunables         gait.Tunables      `json:"tunables"`

	ConfigFilePath string `json:"-"`
}

// Default returns the configuration of the reference robot.
func Default() Config {
	return Config{
		Robot:           kinematics.DefaultProfile,
		Gait:            gait.TrotName,
		SmoothingFactor: motion.DefaultSmoothingFactor,
		FrequencyHz:     DefaultFrequencyHz,
		ServoDirections: DefaultServoDirections,
		Tunables:        gait.DefaultTunables(),
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Robot == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "robot")
	}
	if _, err := c.ResolveGeometry(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.Gait != gait.TrotName && c.Gait != gait.WalkName {
		return utils.NewConfigValidationError(path,
			errors.Errorf("gait must be %q or %q, got %q", gait.TrotName, gait.WalkName, c.Gait))
	}
	if !(c.SmoothingFactor > 0 && c.SmoothingFactor <= 1) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("smoothing_factor must be in (0, 1], got %v", c.SmoothingFactor))
	}
	if !(c.FrequencyHz > 0 && c.FrequencyHz <= MaxFrequencyHz) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("frequency_hz must be in (0, %d], got %v", MaxFrequencyHz, c.FrequencyHz))
	}
	if c.TickSeconds < 0 || math.IsNaN(c.TickSeconds) || math.IsInf(c.TickSeconds, 0) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("tick_seconds cannot be negative or non-finite, got %v", c.TickSeconds))
	}
	for i, dir := range c.ServoDirections {
		if dir != 1 && dir != -1 {
			return utils.NewConfigValidationError(path,
				errors.Errorf("servo_directions[%d] must be 1 or -1, got %v", i, dir))
		}
	}
	if err := c.Tunables.Validate(); err != nil {
		return utils.NewConfigValidationError(fmt.Sprintf("%s.tunables", path), err)
	}
	return nil
}

// ResolveGeometry returns the robot profile with the configured overrides applied, validated.
func (c *Config) ResolveGeometry() (kinematics.Geometry, error) {
	g, err := kinematics.ProfileNamed(c.Robot)
	if err != nil {
		return kinematics.Geometry{}, err
	}
	if len(c.Geometry) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &g,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return kinematics.Geometry{}, err
		}
		if err := decoder.Decode(c.Geometry); err != nil {
			return kinematics.Geometry{}, errors.Wrap(err, "bad geometry override")
		}
	}
	if err := g.Validate("geometry"); err != nil {
		return kinematics.Geometry{}, err
	}
	return g, nil
}

// Dt is the interval fed to each tick.
func (c *Config) Dt() float64 {
	if c.TickSeconds > 0 {
		return c.TickSeconds
	}
	return 1 / c.FrequencyHz
}

// MotionOptions returns the blending options for the motion states.
func (c *Config) MotionOptions() motion.Options {
	opts := motion.DefaultOptions()
	opts.SmoothingFactor = c.SmoothingFactor
	opts.Stabilize = c.IMUStabilization
	return opts
}
