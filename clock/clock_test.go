package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTicker struct {
	tickCount atomic.Int64
}

func (m *mockTicker) Tick() {
	m.tickCount.Add(1)
}

func TestClock(t *testing.T) {
	t.Run("DispatchAtQuantum", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := New(WithInterval(5 * time.Millisecond))
		ticker := &mockTicker{}
		c.Add(ticker)

		c.Start(ctx)
		time.Sleep(100 * time.Millisecond)
		c.Stop()

		assert.GreaterOrEqual(t, ticker.tickCount.Load(), int64(4), "expected at least 4 ticks")
	})

	t.Run("PerSubscriberDeadline", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := New(WithInterval(2 * time.Millisecond))
		fast := &mockTicker{}
		slow := &mockTicker{}
		c.Add(fast)
		c.Add(slow, Every(50*time.Millisecond))

		c.Start(ctx)
		time.Sleep(120 * time.Millisecond)
		c.Stop()

		assert.GreaterOrEqual(t, fast.tickCount.Load(), int64(20), "fast subscriber underfired")
		slowTicks := slow.tickCount.Load()
		assert.GreaterOrEqual(t, slowTicks, int64(1), "slow subscriber never fired")
		assert.LessOrEqual(t, slowTicks, int64(4), "slow subscriber fired at the quantum instead of its deadline")
	})

	t.Run("StopHaltsDispatch", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := New(WithInterval(2 * time.Millisecond))
		ticker := &mockTicker{}
		c.Add(ticker)

		c.Start(ctx)
		time.Sleep(20 * time.Millisecond)
		c.Stop()
		c.Stop() // idempotent

		require.Eventually(t, func() bool { return !c.Ticking() }, time.Second, 5*time.Millisecond)

		before := ticker.tickCount.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, before, ticker.tickCount.Load(), "ticks kept arriving after Stop")
	})

	t.Run("ContextCancelStops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		c := New(WithInterval(2 * time.Millisecond))
		c.Add(&mockTicker{})
		c.Start(ctx)

		require.Eventually(t, func() bool { return c.Ticking() }, time.Second, time.Millisecond)
		cancel()
		require.Eventually(t, func() bool { return !c.Ticking() }, time.Second, 5*time.Millisecond)
	})

	t.Run("RunIsSingleUse", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := New(WithInterval(2 * time.Millisecond))
		c.Start(ctx)
		require.Eventually(t, func() bool { return c.Ticking() }, time.Second, time.Millisecond)

		returned := make(chan struct{})
		go func() {
			c.Run(ctx)
			close(returned)
		}()

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("second Run call did not return immediately")
		}
	})
}
