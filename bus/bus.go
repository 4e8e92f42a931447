package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tableside_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

var ErrClosed = errors.New("bus is closed")

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus delivers row-change events to every subscriber of a table.
type Bus interface {
	Publisher
	// Subscribe registers for events on table matching filter. The
	// subscription ends on Unsubscribe or when ctx is done.
	Subscribe(ctx context.Context, table string, filter EventType) (*Subscription, error)
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

type Subscription struct {
	C    <-chan Event
	once sync.Once
	stop func()
}

func newSubscription(c <-chan Event, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// Deps holds the connections the remote drivers reuse.
type Deps struct {
	Logger      *gecho.Logger
	Redis       *redis.Client
	PostgresDSN string
}

// New builds the driver named in cfg.Driver.
func New(ctx context.Context, cfg *structs.BusConfig, deps Deps) (Bus, error) {
	logger := deps.Logger
	if logger == nil {
		logger = gecho.NewDefaultLogger()
	}

	switch cfg.Driver {
	case "", "memory":
		return NewMemoryBus(cfg.BufferSize), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis bus requires a redis client")
		}
		return NewRedisBus(deps.Redis, cfg.RedisPrefix, cfg.BufferSize, logger), nil
	case "rabbitmq":
		return DialRabbitBus(cfg.AMQPURL, cfg.AMQPExchange, cfg.BufferSize, logger)
	case "postgres":
		return NewPostgresBus(ctx, deps.PostgresDSN, cfg.PgChannel, cfg.BufferSize, logger)
	}
	return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
}

// deliver hands ev to out without blocking. A full buffer already guarantees
// the consumer a pending refresh, so the event is dropped.
func deliver(out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	default:
		return false
	}
}

func bufferSize(n int) int {
	if n <= 0 {
		return 64
	}
	return n
}
