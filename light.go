package stoplight

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sidharth2189/stoplight/clock"
)

const (
	// Cycle duration is drawn uniformly from [DefaultMinCycle, DefaultMaxCycle].
	DefaultMinCycle = 4 * time.Second
	DefaultMaxCycle = 6 * time.Second

	// DefaultQuantum bounds how often the loop checks its stopwatch.
	DefaultQuantum = time.Millisecond
)

var ErrAlreadySimulating = errors.New("stoplight: light is already simulating")

// Light is a traffic light. It starts Red, and once Simulate is
// called it toggles between Red and Green on a randomized cadence
// until its context is cancelled or Stop is called.
//
// The current phase lives under the Light's mutex and every toggle
// broadcasts on the associated condition, so a WaitForGreen caller can
// never miss a green: it re-checks the authoritative field rather than
// racing other waiters for a consumed notification. Each toggle is
// also pushed into a single-slot Mailbox for consume-once observers
// (NextPhase).
type Light struct {
	mu    sync.Mutex
	cond  *sync.Cond
	phase Phase

	updates *Mailbox[Phase]
	notify  func(Phase)

	minCycle time.Duration
	maxCycle time.Duration
	quantum  time.Duration
	logger   *log.Logger

	clk        *clock.Clock
	simulating atomic.Bool
	done       *Signal
}

func New(opts ...LightOption) *Light {
	l := &Light{
		phase:    Red,
		updates:  NewMailbox[Phase](),
		minCycle: DefaultMinCycle,
		maxCycle: DefaultMaxCycle,
		quantum:  DefaultQuantum,
		logger:   log.Default(),
		done:     newSignal(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.cond = sync.NewCond(&l.mu)
	l.clk = clock.New(clock.WithInterval(l.quantum), clock.WithLogger(l.logger))
	return l
}

// CurrentPhase returns the phase as of the last completed toggle.
func (l *Light) CurrentPhase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// WaitForGreen blocks the caller until the light is green. It returns
// immediately if the light is already green. There is no timeout: a
// caller that waits on a light that never turns green waits forever.
func (l *Light) WaitForGreen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.phase != Green {
		l.cond.Wait()
	}
}

// WaitForGreenContext is WaitForGreen bounded by ctx. It returns nil
// once the light is green, or the context error if ctx ends first.
func (l *Light) WaitForGreenContext(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		// Broadcast while holding the lock: a waiter between its
		// ctx.Err() check and cond.Wait() still holds l.mu, and an
		// unlocked broadcast landing in that window would be lost.
		l.mu.Lock()
		defer l.mu.Unlock()
		l.cond.Broadcast()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	for l.phase != Green {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}
	return nil
}

// NextPhase blocks until the next phase transition and returns it.
// Transitions are delivered through a single-slot mailbox: each one is
// consumed by exactly one caller, and an unconsumed transition is
// replaced by the next. Meant for a dedicated observer goroutine.
func (l *Light) NextPhase() Phase {
	return l.updates.Receive()
}

// Simulate starts the toggle loop on its own goroutine, bound to ctx.
// It can only be called once per Light; a second call returns
// ErrAlreadySimulating.
func (l *Light) Simulate(ctx context.Context) error {
	if !l.simulating.CompareAndSwap(false, true) {
		return ErrAlreadySimulating
	}

	// One draw per simulation, not per cycle.
	cycle := l.randomCycle()
	l.logger.Debug("starting toggle loop", "cycle", cycle, "quantum", l.quantum)

	l.clk.Add(clock.TickerFunc(l.toggle), clock.Every(cycle))
	go func() {
		l.clk.Run(ctx)
		l.done.Complete()
		l.logger.Debug("toggle loop stopped")
	}()
	return nil
}

// Stop ends the toggle loop without cancelling the surrounding
// context. Safe to call more than once.
func (l *Light) Stop() {
	l.clk.Stop()
}

// Wait blocks until the toggle loop has exited.
func (l *Light) Wait() {
	<-l.done.Await()
}

// Done reports loop termination as a channel, for select loops.
func (l *Light) Done() <-chan struct{} {
	return l.done.Await()
}

func (l *Light) toggle() {
	l.mu.Lock()
	if l.phase == Red {
		l.phase = Green
	} else {
		l.phase = Red
	}
	next := l.phase
	l.cond.Broadcast()
	l.mu.Unlock()

	l.updates.Send(next)
	if l.notify != nil {
		l.notify(next)
	}
	l.logger.Debug("phase toggled", "phase", next)
}

func (l *Light) randomCycle() time.Duration {
	span := l.maxCycle - l.minCycle
	if span <= 0 {
		return l.minCycle
	}
	return l.minCycle + rand.N(span+1)
}
