package phasebus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidharth2189/stoplight"
	"github.com/sidharth2189/stoplight/phasebus"
)

func receivePhase(t *testing.T, ch <-chan stoplight.Phase) stoplight.Phase {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a phase on the bus")
		return stoplight.Red
	}
}

func TestBusRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := phasebus.New()
	defer bus.Close()

	phases, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, stoplight.Green))
	require.NoError(t, bus.Publish(ctx, stoplight.Red))

	assert.Equal(t, stoplight.Green, receivePhase(t, phases))
	assert.Equal(t, stoplight.Red, receivePhase(t, phases))
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := phasebus.New()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), stoplight.Green)
	assert.Error(t, err)
}

func TestNotifierBridgesLight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := phasebus.New(phasebus.WithTopic("test.phase"))
	defer bus.Close()

	phases, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	light := stoplight.New(
		stoplight.WithCycleRange(30*time.Millisecond, 50*time.Millisecond),
		stoplight.WithNotify(bus.Notifier(ctx)),
	)
	require.NoError(t, light.Simulate(ctx))

	assert.Equal(t, stoplight.Green, receivePhase(t, phases))
	assert.Equal(t, stoplight.Red, receivePhase(t, phases))
	assert.Equal(t, stoplight.Green, receivePhase(t, phases))
}
