package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime pauses for Tick of wall-clock time between ticks.
	RealTime Mode = iota
	// Accelerated runs ticks back to back while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// DefaultTick is the pause between ticks in RealTime mode.
const DefaultTick = 2 * time.Second

// Listener is invoked once per tick with the simulation time. A non-nil
// error stops the controller.
type Listener func(ctx context.Context, simTime time.Time) error

// TimeController drives simulation time and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// currentTime tracks the current simulation time. It is updated
	// as the controller advances time.
	currentTime time.Time

	listeners []Listener
}

// NewTimeController constructs a controller. A non-positive tick falls back
// to DefaultTick.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the simulation clock to t.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn Listener) {
	tc.listeners = append(tc.listeners, fn)
}

// Run fires the listeners once per tick on the calling goroutine until
// maxTicks ticks have run (maxTicks <= 0 means unbounded) or ctx is done.
// The context is checked before every tick, and a RealTime pause returns
// as soon as ctx is cancelled. It returns ctx.Err() on cancellation, the
// first listener error, or nil once maxTicks is reached.
func (tc *TimeController) Run(ctx context.Context, maxTicks int) error {
	simTime := tc.Now()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if n > 0 {
			simTime = simTime.Add(tc.Tick)
			tc.SetTime(simTime)
		}

		for _, fn := range tc.listeners {
			if err := fn(ctx, simTime); err != nil {
				return err
			}
		}

		if tc.Mode != RealTime || (maxTicks > 0 && n == maxTicks-1) {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(tc.Tick)
		} else {
			timer.Reset(tc.Tick)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
