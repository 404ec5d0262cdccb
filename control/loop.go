package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/spotmicro/locomotion/kinematics"
	"github.com/spotmicro/locomotion/logging"
	"github.com/spotmicro/locomotion/utils"
)

// MaxFrequencyHz is the fastest loop rate accepted.
const MaxFrequencyHz = 200

// LoopConfig configures a Loop.
type LoopConfig struct {
	FrequencyHz float64
	// Dt is the interval passed to each tick. Zero means the tick period.
	Dt float64
	// Clock drives the ticker. Nil means the wall clock.
	Clock clock.Clock
}

// Loop ticks a Controller at a fixed rate on a background worker.
type Loop struct {
	logger     logging.Logger
	controller *Controller
	clock      clock.Clock
	period     time.Duration
	dt         float64
	frequency  float64

	mu      sync.Mutex
	workers utils.StoppableWorkers

	running    atomic.Bool
	ticks      atomic.Int64
	outOfReach atomic.Int64
	failures   atomic.Int64

	// reachLog throttles out of reach logging, which can repeat every tick.
	reachLog rate.Sometimes
}

// NewLoop returns a stopped loop.
func NewLoop(c *Controller, cfg LoopConfig, logger logging.Logger) (*Loop, error) {
	if cfg.FrequencyHz <= 0 || cfg.FrequencyHz > MaxFrequencyHz {
		return nil, errors.Errorf("loop frequency shouldn't be 0 or above %dHz, got %v", MaxFrequencyHz, cfg.FrequencyHz)
	}
	l := &Loop{
		logger:     logger.Sublogger("loop"),
		controller: c,
		clock:      cfg.Clock,
		period:     time.Duration(float64(time.Second) / cfg.FrequencyHz),
		dt:         cfg.Dt,
		frequency:  cfg.FrequencyHz,
		reachLog:   rate.Sometimes{Interval: time.Second},
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if l.dt <= 0 {
		l.dt = l.period.Seconds()
	}
	return l, nil
}

// Start begins ticking. The loop stops when ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running.Load() {
		return errors.New("loop already running")
	}
	l.logger.Infof("running loop at %1.4fHz (%v)", l.frequency, l.period)
	ticker := l.clock.Ticker(l.period)
	l.running.Store(true)
	l.workers = utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.tick(ctx)
			}
		}
	})
	return nil
}

func (l *Loop) tick(ctx context.Context) {
	_, err := l.controller.Tick(ctx, l.dt)
	l.ticks.Inc()
	switch {
	case err == nil:
	case kinematics.IsOutOfReach(err):
		l.outOfReach.Inc()
		l.reachLog.Do(func() {
			l.logger.Debugw("tick out of reach", "error", err, "count", l.outOfReach.Load())
		})
	default:
		l.failures.Inc()
		l.logger.Warnw("tick failed", "error", err)
	}
}

// Stop stops the loop and waits for the current tick to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running.Load() {
		return
	}
	l.logger.Debug("closing loop")
	l.workers.Stop()
	l.running.Store(false)
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Frequency returns the loop's frequency.
func (l *Loop) Frequency() float64 {
	return l.frequency
}

// Ticks is the number of ticks run since the loop was built.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}

// OutOfReach is the number of ticks whose pose could not be reached.
func (l *Loop) OutOfReach() int64 {
	return l.outOfReach.Load()
}

// Failures is the number of ticks that failed for any other reason.
func (l *Loop) Failures() int64 {
	return l.failures.Load()
}
