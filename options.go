package stoplight

import (
	"time"

	"github.com/charmbracelet/log"
)

type LightOption func(*Light)

// WithCycleRange overrides the interval the cycle duration is drawn
// from. Both bounds are inclusive; lo == hi pins the duration.
func WithCycleRange(lo, hi time.Duration) LightOption {
	return func(l *Light) {
		l.minCycle = lo
		l.maxCycle = hi
	}
}

// WithQuantum overrides how often the toggle loop polls its stopwatch.
func WithQuantum(quantum time.Duration) LightOption {
	return func(l *Light) {
		l.quantum = quantum
	}
}

func WithLogger(logger *log.Logger) LightOption {
	return func(l *Light) {
		l.logger = logger
	}
}

// WithNotify registers a hook invoked after every toggle, from the
// loop goroutine. It must not block for long: the loop does not toggle
// again until the hook returns.
func WithNotify(fn func(Phase)) LightOption {
	return func(l *Light) {
		l.notify = fn
	}
}
