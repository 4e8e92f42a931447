package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MonkyMars/gecho"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitBus publishes events to the fanout exchange <exchange>.<table>. Every
// subscription gets its own exclusive, auto-deleted queue bound to it.
type RabbitBus struct {
	conn     *amqp.Connection
	mu       sync.Mutex // guards pub and declared
	pub      *amqp.Channel
	declared map[string]bool
	exchange string
	buffer   int
	logger   *gecho.Logger
}

func DialRabbitBus(url, exchange string, buffer int, logger *gecho.Logger) (*RabbitBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if exchange == "" {
		exchange = "changes"
	}

	return &RabbitBus{
		conn:     conn,
		pub:      ch,
		declared: make(map[string]bool),
		exchange: exchange,
		buffer:   bufferSize(buffer),
		logger:   logger,
	}, nil
}

func (b *RabbitBus) Name() string { return "rabbitmq" }

func (b *RabbitBus) exchangeName(table string) string {
	return fmt.Sprintf("%s.%s", b.exchange, table)
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil)
}

func (b *RabbitBus) Publish(ctx context.Context, ev Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	name := b.exchangeName(ev.Table)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.declared[name] {
		if err := declareExchange(b.pub, name); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
		b.declared[name] = true
	}

	return b.pub.PublishWithContext(ctx, name, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        data,
	})
}

func (b *RabbitBus) Subscribe(ctx context.Context, table string, filter EventType) (*Subscription, error) {
	name := b.exchangeName(table)

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := declareExchange(ch, name); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", name, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to bind queue to %s: %w", name, err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to consume %s: %w", q.Name, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, b.buffer)

	go func() {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				ev, err := decodeEvent(d.Body)
				if err != nil {
					b.logger.Debug("Dropping undecodable bus message",
						gecho.Field("exchange", name),
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
		_ = ch.Close()
	}), nil
}

func (b *RabbitBus) Ping(ctx context.Context) error {
	if b.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (b *RabbitBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub != nil {
		_ = b.pub.Close()
	}
	return b.conn.Close()
}
