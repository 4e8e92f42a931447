package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"tableside_server/bus"
	"tableside_server/lib"
	"tableside_server/structs/tables"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetch struct {
	mu     sync.Mutex
	calls  atomic.Int32
	orders []*tables.Order
	err    error
}

func (c *countingFetch) fetch(ctx context.Context) ([]*tables.Order, int, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, 0, c.err
	}
	return c.orders, len(c.orders), nil
}

func (c *countingFetch) set(orders []*tables.Order, err error) {
	c.mu.Lock()
	c.orders, c.err = orders, err
	c.mu.Unlock()
}

func kitchenConfig() SurfaceConfig {
	return SurfaceConfig{
		Name:         SurfaceKitchen,
		Tables:       []string{"orders"},
		TickInterval: time.Hour,
		Debounce:     100 * time.Millisecond,
		FetchTimeout: time.Second,
		Thresholds:   lib.DefaultUrgencyThresholds,
	}
}

func openOrder(status tables.OrderStatus, createdAt time.Time) *tables.Order {
	return &tables.Order{TableNumber: "3", Status: status, CreatedAt: createdAt}
}

func TestSurfaceCoalescesEventBursts(t *testing.T) {
	b := bus.NewMemoryBus(16)
	fetch := &countingFetch{}
	s := NewSurface(kitchenConfig(), NewSurfaceSession(SurfaceKitchen, true), fetch.fetch, b, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return b.Subscribers("orders") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fetch.calls.Load())

	for range 5 {
		require.NoError(t, b.Publish(ctx, bus.Event{Table: "orders", Type: bus.EventUpdate, Raw: json.RawMessage(`{}`)}))
	}

	require.Eventually(t, func() bool { return fetch.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(2), fetch.calls.Load())
}

func TestSurfaceNeverAppliesEventPayload(t *testing.T) {
	b := bus.NewMemoryBus(16)
	now := time.Now()
	fetch := &countingFetch{orders: []*tables.Order{openOrder(tables.OrderStatusPending, now)}}
	s := NewSurface(kitchenConfig(), NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, b, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	require.Eventually(t, func() bool { return b.Subscribers("orders") == 1 }, time.Second, 5*time.Millisecond)

	raw := json.RawMessage(`{"status":"delivered","table_number":"99"}`)
	require.NoError(t, b.Publish(ctx, bus.Event{Table: "orders", Type: bus.EventUpdate, Raw: raw}))
	require.Eventually(t, func() bool { return fetch.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return s.Snapshot().Version >= 2 }, time.Second, 5*time.Millisecond)
	snap := s.Snapshot()
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, tables.OrderStatusPending, snap.Orders[0].Status)
	assert.Equal(t, "3", snap.Orders[0].TableNumber)
}

func TestSurfaceReleasesSubscriptionOnStop(t *testing.T) {
	b := bus.NewMemoryBus(16)
	fetch := &countingFetch{}
	cfg := kitchenConfig()
	cfg.Tables = []string{"orders", "order_items"}
	s := NewSurface(cfg, NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, b, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return b.Subscribers("orders") == 1 && b.Subscribers("order_items") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 0, b.Subscribers("orders"))
	assert.Equal(t, 0, b.Subscribers("order_items"))
}

func TestSurfacePollsWithoutEvents(t *testing.T) {
	b := bus.NewMemoryBus(16)
	fetch := &countingFetch{}
	cfg := kitchenConfig()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.Debounce = 0
	s := NewSurface(cfg, NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, b, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return fetch.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestSurfaceKeepsLastGoodOrdersOnError(t *testing.T) {
	now := time.Now()
	fetch := &countingFetch{orders: []*tables.Order{openOrder(tables.OrderStatusPending, now)}}
	s := NewSurface(kitchenConfig(), NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, bus.NewMemoryBus(1), testLogger())
	ctx := context.Background()

	s.refresh(ctx, TriggerInitial)
	require.Len(t, s.Snapshot().Orders, 1)
	fetchedAt := s.Snapshot().FetchedAt

	fetch.set(nil, errors.New("connection refused"))

	s.refresh(ctx, TriggerEvent)
	snap := s.Snapshot()
	assert.Len(t, snap.Orders, 1)
	assert.Empty(t, snap.LastError)

	s.refresh(ctx, TriggerPoll)
	snap = s.Snapshot()
	assert.Len(t, snap.Orders, 1)
	assert.Equal(t, "connection refused", snap.LastError)
	assert.Equal(t, fetchedAt, snap.FetchedAt)

	fetch.set([]*tables.Order{}, nil)
	s.refresh(ctx, TriggerPoll)
	snap = s.Snapshot()
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.LastError)
}

func TestSurfaceTickReclassifiesWithoutFetching(t *testing.T) {
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := start
	fetch := &countingFetch{orders: []*tables.Order{openOrder(tables.OrderStatusPreparing, start)}}
	s := NewSurface(kitchenConfig(), NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, bus.NewMemoryBus(1), testLogger())
	s.now = func() time.Time { return clock }

	s.refresh(context.Background(), TriggerInitial)
	assert.Equal(t, lib.UrgencyNominal, s.Snapshot().Orders[0].Urgency.Tier)

	clock = start.Add(6 * time.Minute)
	s.recompute()
	assert.Equal(t, lib.UrgencyWarning, s.Snapshot().Orders[0].Urgency.Tier)

	clock = start.Add(16 * time.Minute)
	s.recompute()
	snap := s.Snapshot()
	assert.Equal(t, lib.UrgencyLate, snap.Orders[0].Urgency.Tier)
	assert.Equal(t, int64(960), snap.Orders[0].Urgency.ElapsedSeconds)
	assert.Equal(t, 1, snap.LateCount)

	assert.Equal(t, int32(1), fetch.calls.Load())
}

func TestSurfaceLateAlert(t *testing.T) {
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := start.Add(20 * time.Minute)
	fetch := &countingFetch{orders: []*tables.Order{openOrder(tables.OrderStatusPending, start)}}
	session := NewSurfaceSession(SurfaceKitchen, true)
	s := NewSurface(kitchenConfig(), session, fetch.fetch, bus.NewMemoryBus(1), testLogger())
	s.now = func() time.Time { return clock }

	var alerts int
	s.OnLateAlert(func(Snapshot) { alerts++ })

	s.refresh(context.Background(), TriggerInitial)
	assert.True(t, s.Snapshot().Alert)
	assert.Equal(t, 1, alerts)

	// Same late count, no new alert
	s.recompute()
	assert.False(t, s.Snapshot().Alert)
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 1, session.State().LastSeenLateCount)

	// A rise with sound disabled is recorded but stays silent
	session.SetSoundEnabled(false)
	fetch.set([]*tables.Order{
		openOrder(tables.OrderStatusPending, start),
		openOrder(tables.OrderStatusReady, start),
	}, nil)
	s.refresh(context.Background(), TriggerPoll)
	assert.False(t, s.Snapshot().Alert)
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 2, session.State().LastSeenLateCount)
}

func TestSurfaceWatchStartsWithCurrentSnapshot(t *testing.T) {
	fetch := &countingFetch{orders: []*tables.Order{openOrder(tables.OrderStatusPending, time.Now())}}
	s := NewSurface(kitchenConfig(), NewSurfaceSession(SurfaceKitchen, false), fetch.fetch, bus.NewMemoryBus(1), testLogger())
	s.refresh(context.Background(), TriggerInitial)

	ch, stop := s.Watch()
	first := <-ch
	assert.Equal(t, s.Snapshot().Version, first.Version)
	assert.Equal(t, 1, s.Watchers())

	// Unread snapshots are replaced by the latest one
	s.recompute()
	s.recompute()
	latest := <-ch
	assert.Equal(t, first.Version+2, latest.Version)

	stop()
	stop()
	assert.Equal(t, 0, s.Watchers())
}
