package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"tableside_server/database"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func testLogger() *gecho.Logger {
	return gecho.NewLogger(gecho.NewConfig(gecho.WithLogLevel(gecho.ParseLogLevel("error"))))
}

func noRetry() database.RetryConfig {
	return database.RetryConfig{MaxAttempts: 1, EnableRetry: false}
}

// fakeStore behaves like the orders tables, including conditional status
// writes and rejecting columns the schema does not have.
type fakeStore struct {
	mu             sync.Mutex
	orders         map[uuid.UUID]*tables.Order
	logs           []*tables.OrderStatusLog
	missingColumns map[string]bool
	insertErr      error
	itemsErr       error
	insertDelay    time.Duration
	lostReplies    int // inserts that commit and then report a dropped connection
	findErr        error
	insertCalls    [][]string
	findCalls      int
	clock          time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:         make(map[uuid.UUID]*tables.Order),
		missingColumns: make(map[string]bool),
		clock:          time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) InsertOrder(ctx context.Context, order *tables.Order, columns []string) error {
	if f.insertDelay > 0 {
		time.Sleep(f.insertDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls = append(f.insertCalls, columns)
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, c := range columns {
		if f.missingColumns[c] {
			return &pgconn.PgError{
				Code:    "42703",
				Message: `column "` + c + `" of relation "orders" does not exist`,
				Hint:    "check the migration",
			}
		}
	}

	if order.Id == uuid.Nil {
		order.Id = uuid.New()
	}
	// ON CONFLICT (id) DO NOTHING, then the committed row is read back
	if existing, ok := f.orders[order.Id]; ok {
		*order = *existing
		return nil
	}

	order.CreatedAt = f.clock
	order.UpdatedAt = f.clock
	stored := *order
	if !slices.Contains(columns, tables.ColumnTipAmount) {
		stored.TipAmount = 0
	}
	if !slices.Contains(columns, tables.ColumnNotes) {
		stored.Notes = ""
	}
	f.orders[order.Id] = &stored

	if f.lostReplies > 0 {
		f.lostReplies--
		return errors.New("read tcp 10.0.0.2:5432: connection reset by peer")
	}
	return nil
}

func (f *fakeStore) InsertItems(ctx context.Context, items []*tables.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.itemsErr != nil {
		return f.itemsErr
	}
	for _, item := range items {
		if item.Id == uuid.Nil {
			item.Id = uuid.New()
		}
		o, ok := f.orders[item.OrderId]
		if !ok {
			return lib.ErrNotFound
		}
		if slices.ContainsFunc(o.Items, func(stored *tables.OrderItem) bool { return stored.Id == item.Id }) {
			continue
		}
		o.Items = append(o.Items, item)
	}

	if f.lostReplies > 0 {
		f.lostReplies--
		return errors.New("read tcp 10.0.0.2:5432: connection reset by peer")
	}
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeStore) put(order *tables.Order) *tables.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order.Id == uuid.Nil {
		order.Id = uuid.New()
	}
	f.orders[order.Id] = order
	return order
}

func (f *fakeStore) GetOrder(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (f *fakeStore) setStatus(id uuid.UUID, status tables.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Status = status
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to tables.OrderStatus) (*tables.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	if o.Status != from {
		return nil, &lib.TransitionError{From: o.Status, To: to, Err: lib.ErrStatusConflict}
	}
	o.Status = to
	clone := *o
	clone.Items = nil
	return &clone, nil
}

func (f *fakeStore) LogTransition(ctx context.Context, entry *tables.OrderStatusLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeStore) FindOrders(ctx context.Context, opts *structs.OrderListOptions) ([]*tables.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.findCalls++
	if f.findErr != nil {
		return nil, 0, f.findErr
	}

	out := make([]*tables.Order, 0, len(f.orders))
	for _, o := range f.orders {
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, o.Status) {
			continue
		}
		clone := *o
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *tables.Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, len(out), nil
}

func (f *fakeStore) finds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

type fakeClients struct {
	mu        sync.Mutex
	held      map[string]time.Time // window end per client
	tables    map[string]string
	history   map[string][]structs.HistoryEntry
	readErr   error
	recordErr error
}

func newFakeClients() *fakeClients {
	return &fakeClients{
		held:    make(map[string]time.Time),
		tables:  make(map[string]string),
		history: make(map[string][]structs.HistoryEntry),
	}
}

func (f *fakeClients) ReserveSubmission(ctx context.Context, clientId string, at time.Time, window time.Duration) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	if until, ok := f.held[clientId]; ok && at.Before(until) {
		return until.Sub(at), nil
	}
	f.held[clientId] = at.Add(window)
	return 0, nil
}

func (f *fakeClients) ReleaseSubmission(ctx context.Context, clientId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, clientId)
	return nil
}

func (f *fakeClients) holds(clientId string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.held[clientId]
	return ok
}

func (f *fakeClients) LastTable(ctx context.Context, clientId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[clientId], f.readErr
}

func (f *fakeClients) RecordSubmission(ctx context.Context, clientId, table string, entry structs.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.tables[clientId] = table
	f.history[clientId] = append([]structs.HistoryEntry{entry}, f.history[clientId]...)
	return nil
}

func (f *fakeClients) History(ctx context.Context, clientId string) ([]structs.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[clientId], nil
}
