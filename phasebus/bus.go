// Package phasebus bridges phase transitions onto a watermill Pub/Sub
// so components that speak messages rather than mailboxes can observe
// a light.
package phasebus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/avast/retry-go/v3"
	"github.com/google/uuid"

	"github.com/sidharth2189/stoplight"
)

const DefaultTopic = "stoplight.phase"

// Bus publishes and subscribes phase transitions over an in-process
// gochannel Pub/Sub. Phases travel as their string form; message UUIDs
// are fresh v4 UUIDs.
type Bus struct {
	pubsub   *gochannel.GoChannel
	topic    string
	logger   watermill.LoggerAdapter
	attempts uint
	buffer   int64
}

type Option func(*Bus)

func WithTopic(topic string) Option {
	return func(b *Bus) {
		b.topic = topic
	}
}

func WithLogger(logger watermill.LoggerAdapter) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithAttempts sets how many times a publish is retried before the
// error is surfaced.
func WithAttempts(attempts uint) Option {
	return func(b *Bus) {
		b.attempts = attempts
	}
}

// WithBuffer sets the per-subscriber channel buffer. A non-zero
// buffer keeps a slow subscriber from stalling the publisher.
func WithBuffer(size int64) Option {
	return func(b *Bus) {
		b.buffer = size
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{
		topic:    DefaultTopic,
		logger:   watermill.NopLogger{},
		attempts: 3,
		buffer:   16,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: b.buffer,
	}, b.logger)
	return b
}

// Publish sends p to every current subscriber, retrying transient
// publish failures.
func (b *Bus) Publish(ctx context.Context, p stoplight.Phase) error {
	msg := message.NewMessage(uuid.NewString(), []byte(p.String()))
	msg.SetContext(ctx)

	err := retry.Do(func() error {
		return b.pubsub.Publish(b.topic, msg)
	}, retry.Attempts(b.attempts), retry.LastErrorOnly(true))
	if err != nil {
		return fmt.Errorf("publishing phase %s: %w", p, err)
	}
	return nil
}

// Subscribe returns a channel of decoded phases. The channel closes
// when ctx ends or the bus is closed. Messages that do not decode to a
// phase are acked and dropped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan stoplight.Phase, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", b.topic, err)
	}

	out := make(chan stoplight.Phase)
	go func() {
		defer close(out)
		for msg := range msgs {
			p, err := stoplight.ParsePhase(string(msg.Payload))
			if err != nil {
				b.logger.Error("dropping undecodable phase message", err, watermill.LogFields{"uuid": msg.UUID})
				msg.Ack()
				continue
			}
			select {
			case out <- p:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Notifier adapts the bus into a stoplight.WithNotify hook. Publish
// errors are logged, not surfaced; the toggle loop has nowhere to
// return them.
func (b *Bus) Notifier(ctx context.Context) func(stoplight.Phase) {
	return func(p stoplight.Phase) {
		if err := b.Publish(ctx, p); err != nil {
			b.logger.Error("phase publish failed", err, nil)
		}
	}
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
