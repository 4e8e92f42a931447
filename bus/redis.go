package bus

import (
	"context"
	"fmt"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

// RedisBus publishes events on the Pub/Sub channel <prefix>:<table>.
type RedisBus struct {
	client *redis.Client
	prefix string
	buffer int
	logger *gecho.Logger
}

func NewRedisBus(client *redis.Client, prefix string, buffer int, logger *gecho.Logger) *RedisBus {
	if prefix == "" {
		prefix = "changes"
	}
	return &RedisBus{
		client: client,
		prefix: prefix,
		buffer: bufferSize(buffer),
		logger: logger,
	}
}

func (b *RedisBus) Name() string { return "redis" }

func (b *RedisBus) channel(table string) string {
	return fmt.Sprintf("%s:%s", b.prefix, table)
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.client.Publish(ctx, b.channel(ev.Table), data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, table string, filter EventType) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel(table))

	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel(table), err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, b.buffer)
	messages := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ev, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					b.logger.Debug("Dropping undecodable bus message",
						gecho.Field("channel", msg.Channel),
						gecho.Field("error", err),
					)
					continue
				}
				if ev.Type.Matches(filter) {
					deliver(out, ev)
				}
			}
		}
	}()

	return newSubscription(out, func() {
		cancel()
		_ = ps.Close()
	}), nil
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close is a no-op; the client is shared with the cache and closed there.
func (b *RedisBus) Close() error {
	return nil
}
