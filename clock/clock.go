// Package clock provides a single-goroutine ticker that drives
// registered subscribers on their own elapsed-time deadlines. One
// goroutine ticking at a short quantum and fanning out is cheaper than
// one timer goroutine per subscriber.
package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Ticker is anything the clock can fire.
type Ticker interface {
	Tick()
}

// TickerFunc adapts a plain function into a Ticker.
type TickerFunc func()

func (f TickerFunc) Tick() { f() }

type sub struct {
	ticker Ticker
	every  time.Duration
	last   time.Time
}

// SubOption configures a single subscriber.
type SubOption func(*sub)

// Every sets the subscriber's deadline interval. The subscriber fires
// on the first quantum tick at which that much time has elapsed since
// it last fired. Defaults to the clock's quantum.
func Every(d time.Duration) SubOption {
	return func(s *sub) {
		s.every = d
	}
}

// Clock dispatches ticks to its subscribers from one goroutine.
type Clock struct {
	interval time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	subs []*sub

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

type Option func(*Clock)

// WithInterval sets the polling quantum.
func WithInterval(interval time.Duration) Option {
	return func(c *Clock) {
		c.interval = interval
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Clock) {
		c.logger = logger
	}
}

func New(opts ...Option) *Clock {
	c := &Clock{
		interval: time.Millisecond,
		logger:   log.Default(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers a subscriber. Its stopwatch starts when Run starts,
// or immediately if the clock is already running.
func (c *Clock) Add(t Ticker, opts ...SubOption) {
	s := &sub{ticker: t, every: c.interval, last: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
}

// Run ticks until ctx is cancelled or Stop is called. A Clock runs at
// most once; further calls return immediately.
func (c *Clock) Run(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	defer c.running.Store(false)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.mu.Lock()
	now := time.Now()
	for _, s := range c.subs {
		s.last = now
	}
	c.mu.Unlock()

	c.logger.Debug("clock running", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("clock stopped", "reason", ctx.Err())
			return
		case <-c.stopCh:
			c.logger.Debug("clock stopped")
			return
		case now := <-ticker.C:
			c.dispatch(now)
		}
	}
}

// Start is Run on its own goroutine.
func (c *Clock) Start(ctx context.Context) {
	go c.Run(ctx)
}

func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Clock) Ticking() bool {
	return c.running.Load()
}

func (c *Clock) dispatch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if now.Sub(s.last) >= s.every {
			s.ticker.Tick()
			s.last = now
		}
	}
}
