// Package fake implements a fake actuator that records every write.
package fake

import (
	"context"
	"sync"

	"github.com/spotmicro/locomotion/components/actuator"
)

// Actuator keeps the angles written to it.
type Actuator struct {
	mu     sync.Mutex
	writes [][actuator.NumJoints]float64
	err    error
}

// NewActuator returns an empty fake actuator.
func NewActuator() *Actuator {
	return &Actuator{}
}

// SetAngles records the angles, or returns the error set by SetError without recording.
func (a *Actuator) SetAngles(ctx context.Context, angles [actuator.NumJoints]float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.writes = append(a.writes, angles)
	return nil
}

// SetError makes subsequent writes fail with err. A nil err clears it.
func (a *Actuator) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Writes returns a copy of every recorded write, oldest first.
func (a *Actuator) Writes() [][actuator.NumJoints]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][actuator.NumJoints]float64, len(a.writes))
	copy(out, a.writes)
	return out
}

// Last returns the most recent write and whether there was one.
func (a *Actuator) Last() ([actuator.NumJoints]float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.writes) == 0 {
		return [actuator.NumJoints]float64{}, false
	}
	return a.writes[len(a.writes)-1], true
}
