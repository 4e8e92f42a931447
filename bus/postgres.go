package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBus uses LISTEN/NOTIFY on channel <prefix>_<table>. Each
// subscription holds one pooled connection for as long as it listens.
type PostgresBus struct {
	pool   *pgxpool.Pool
	prefix string
	buffer int
	logger *gecho.Logger
}

func NewPostgresBus(ctx context.Context, dsn, prefix string, buffer int, logger *gecho.Logger) (*PostgresBus, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping notify pool: %w", err)
	}
	if prefix == "" {
		prefix = "changes"
	}

	return &PostgresBus{
		pool:   pool,
		prefix: prefix,
		buffer: bufferSize(buffer),
		logger: logger,
	}, nil
}

func (b *PostgresBus) Name() string { return "postgres" }

func (b *PostgresBus) channel(table string) string {
	return fmt.Sprintf("%s_%s", b.prefix, table)
}

func (b *PostgresBus) Publish(ctx context.Context, ev Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel(ev.Table), string(data))
	return err
}

func (b *PostgresBus) Subscribe(ctx context.Context, table string, filter EventType) (*Subscription, error) {
	channel := b.channel(table)

	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, b.buffer)

	go func() {
		defer close(out)
		defer func() {
			unlistenCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					b.logger.Warn("Listen connection lost",
						gecho.Field("channel", channel),
						gecho.Field("error", err),
					)
				}
				return
			}
			ev, err := decodeEvent([]byte(n.Payload))
			if err != nil {
				continue
			}
			if ev.Type.Matches(filter) {
				deliver(out, ev)
			}
		}
	}()

	return newSubscription(out, cancel), nil
}

func (b *PostgresBus) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBus) Close() error {
	b.pool.Close()
	return nil
}
