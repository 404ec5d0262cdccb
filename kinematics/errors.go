package kinematics

import (
	"errors"
	"fmt"

	"github.com/spotmicro/locomotion/body"
)

// ErrOutOfReach is matched by every OutOfReachError.
var ErrOutOfReach = errors.New("foot position out of reach")

// OutOfReachError reports a foot position the leg cannot reach.
type OutOfReachError struct {
	Leg   int
	Reach float64
	Min   float64
	Max   float64
}

func (e *OutOfReachError) Error() string {
	return fmt.Sprintf("%s: %s reach %.5f outside [%.5f, %.5f]", ErrOutOfReach, body.LegName(e.Leg), e.Reach, e.Min, e.Max)
}

// Is lets errors.Is match ErrOutOfReach.
func (e *OutOfReachError) Is(target error) bool {
	return target == ErrOutOfReach //nolint:errorlint
}

// IsOutOfReach returns whether err or any error it wraps or combines is an OutOfReachError.
func IsOutOfReach(err error) bool {
	return errors.Is(err, ErrOutOfReach)
}
