package kinematics

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"github.com/spotmicro/locomotion/body"
	"github.com/spotmicro/locomotion/utils"
)

// Fixed limits shared by every robot profile.
const (
	// MaxRollDeg is the largest body roll a pose may command, in degrees.
	MaxRollDeg = 20.0
	// MaxPitchDeg is the largest body pitch a pose may command, in degrees.
	MaxPitchDeg = 15.0
	// DefaultStepDepth is the ground penetration compensation applied to stance feet, in metres.
	DefaultStepDepth = 0.002
	// MaxKneeFoldDeg is how far the tibia may fold back against the femur, in degrees from
	// straight.
	MaxKneeFoldDeg = 165.0
)

// Geometry describes the link lengths and body dimensions of one robot variant. All lengths
// are in metres. A Geometry is immutable once the controller has started.
type Geometry struct {
	Coxa       float64 `json:"coxa" mapstructure:"coxa"`
	CoxaOffset float64 `json:"coxa_offset" mapstructure:"coxa_offset"`
	Femur      float64 `json:"femur" mapstructure:"femur"`
	Tibia      float64 `json:"tibia" mapstructure:"tibia"`
	BodyLength float64 `json:"body_length" mapstructure:"body_length"`
	BodyWidth  float64 `json:"body_width" mapstructure:"body_width"`
}

var profiles = map[string]Geometry{
	"spotmicro_esp32": {
		Coxa: 0.0605, CoxaOffset: 0.010, Femur: 0.1112, Tibia: 0.1185,
		BodyLength: 0.2075, BodyWidth: 0.078,
	},
	"spotmicro_esp32_mini": {
		Coxa: 0.035, CoxaOffset: 0, Femur: 0.060, Tibia: 0.060,
		BodyLength: 0.160, BodyWidth: 0.080,
	},
	"yertle": {
		Coxa: 0.035, CoxaOffset: 0, Femur: 0.130, Tibia: 0.130,
		BodyLength: 0.240, BodyWidth: 0.078,
	},
}

// DefaultProfile is the profile used when none is configured.
const DefaultProfile = "spotmicro_esp32"

// ProfileNamed returns the geometry of a known robot variant.
func ProfileNamed(name string) (Geometry, error) {
	g, ok := profiles[name]
	if !ok {
		return Geometry{}, errors.Errorf("unknown robot profile %q, expected one of %v", name, ProfileNames())
	}
	return g, nil
}

// ProfileNames lists the known robot variants in sorted order.
func ProfileNames() []string {
	names := lo.Keys(profiles)
	sort.Strings(names)
	return names
}

// Validate ensures the geometry describes a leg that can hold the body over its default stance.
func (g Geometry) Validate(path string) error {
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"coxa", g.Coxa},
		{"femur", g.Femur},
		{"tibia", g.Tibia},
		{"body_length", g.BodyLength},
		{"body_width", g.BodyWidth},
	} {
		if field.value == 0 {
			return goutils.NewConfigValidationFieldRequiredError(path, field.name)
		}
		if field.value < 0 || math.IsNaN(field.value) {
			return goutils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", field.name, field.value))
		}
	}
	if g.CoxaOffset < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("coxa_offset cannot be negative, got %v", g.CoxaOffset))
	}
	if g.MaxLegReach() <= g.MinLegReach() {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("coxa_offset %v leaves no usable reach (min %v, max %v)", g.CoxaOffset, g.MinLegReach(), g.MaxLegReach()))
	}
	for _, height := range []float64{g.MinBodyHeight(), g.MaxBodyHeight()} {
		reach := height - g.CoxaOffset
		if reach < g.MinLegReach() || reach > g.MaxLegReach() {
			return goutils.NewConfigValidationError(path,
				errors.Errorf("default stance is unreachable at body height %.4f (reach %.4f, limits [%.4f, %.4f])",
					height, reach, g.MinLegReach(), g.MaxLegReach()))
		}
	}
	return nil
}

// MountOffsets returns the body-frame position of each leg's hip mount.
func (g Geometry) MountOffsets() [body.NumLegs]r3.Vector {
	var out [body.NumLegs]r3.Vector
	for i := range out {
		x := g.BodyLength / 2
		if i >= body.RearLeft {
			x = -x
		}
		out[i] = r3.Vector{X: x, Y: 0, Z: body.Side(i) * g.BodyWidth / 2}
	}
	return out
}

// DefaultFeet returns the neutral foot positions: under each mount, pushed out by the coxa.
func (g Geometry) DefaultFeet() body.Feet {
	var feet body.Feet
	for i, mount := range g.MountOffsets() {
		feet[i] = r3.Vector{X: mount.X, Y: 0, Z: mount.Z + body.Side(i)*g.Coxa}
	}
	return feet
}

// MaxLegReach is the longest hip-pitch-pivot to foot distance the leg can reach.
func (g Geometry) MaxLegReach() float64 {
	return g.Femur + g.Tibia - g.CoxaOffset
}

// MinLegReach is the hip-pitch-pivot to foot distance with the knee folded to MaxKneeFoldDeg.
func (g Geometry) MinLegReach() float64 {
	fold := utils.DegToRad(MaxKneeFoldDeg)
	return math.Sqrt(g.Femur*g.Femur + g.Tibia*g.Tibia + 2*g.Femur*g.Tibia*math.Cos(fold))
}

// MinBodyHeight is the lowest body height, used as the rest pose.
func (g Geometry) MinBodyHeight() float64 {
	return g.MaxLegReach() * 0.45
}

// MaxBodyHeight is the highest body height.
func (g Geometry) MaxBodyHeight() float64 {
	return g.MaxLegReach() * 0.9
}

// BodyHeightRange is MaxBodyHeight - MinBodyHeight.
func (g Geometry) BodyHeightRange() float64 {
	return g.MaxBodyHeight() - g.MinBodyHeight()
}

// DefaultBodyHeight is halfway through the height range.
func (g Geometry) DefaultBodyHeight() float64 {
	return g.MinBodyHeight() + g.BodyHeightRange()/2
}

// MaxRoll returns the roll limit in degrees.
func (g Geometry) MaxRoll() float64 {
	return MaxRollDeg
}

// MaxPitch returns the pitch limit in degrees.
func (g Geometry) MaxPitch() float64 {
	return MaxPitchDeg
}

// MaxBodyShiftX is the largest forward/backward body shift.
func (g Geometry) MaxBodyShiftX() float64 {
	return g.BodyWidth / 3
}

// MaxBodyShiftZ is the largest lateral body shift.
func (g Geometry) MaxBodyShiftZ() float64 {
	return g.BodyWidth / 3
}

// MaxStepLength is the longest commanded step.
func (g Geometry) MaxStepLength() float64 {
	return g.MaxLegReach() * 0.8
}

// MaxStepHeight is the highest commanded foot lift.
func (g Geometry) MaxStepHeight() float64 {
	return g.MaxLegReach() / 2
}

// DefaultStepHeight is the foot lift with no step height modifier.
func (g Geometry) DefaultStepHeight() float64 {
	return g.DefaultBodyHeight() / 2
}

// DefaultStepDepth is the ground penetration compensation for stance feet.
func (g Geometry) DefaultStepDepth() float64 {
	return DefaultStepDepth
}

// RestPose returns the parked pose: minimum height, neutral orientation, default feet.
func (g Geometry) RestPose() body.Pose {
	return body.Pose{Y: g.MinBodyHeight(), Feet: g.DefaultFeet()}
}

// DefaultPose returns a neutral standing pose at the default height.
func (g Geometry) DefaultPose() body.Pose {
	return body.Pose{Y: g.DefaultBodyHeight(), Feet: g.DefaultFeet()}
}

func (g Geometry) String() string {
	return fmt.Sprintf("coxa=%.4f coxa_offset=%.4f femur=%.4f tibia=%.4f length=%.4f width=%.4f",
		g.Coxa, g.CoxaOffset, g.Femur, g.Tibia, g.BodyLength, g.BodyWidth)
}
